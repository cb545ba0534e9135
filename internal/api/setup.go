package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/skyroof/safetymonitor/internal/safety"
)

//go:embed templates/setup.html
var templateFS embed.FS

var setupTemplate = template.Must(template.ParseFS(templateFS, "templates/setup.html"))

// setupPage is the data rendered into the setup template.
type setupPage struct {
	SiteName      string
	Version       string
	Port          int
	Roofs         []safety.RoofConfig
	Selected      *safety.RoofConfig
	Settings      safety.Settings
	Location      *safety.LocationInfo
	RequiresToken bool
	WSPath        string
}

type selectRoofRequest struct {
	RoofName string `json:"roofName"`
}

func (s *Server) handleSetupPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	set := s.service.Settings(ctx)
	reg := s.service.Registry(ctx)

	page := setupPage{
		SiteName:      s.site.Name,
		Version:       s.version,
		Port:          s.cfg.Port,
		Roofs:         reg.Roofs,
		Settings:      set,
		Location:      reg.Location,
		RequiresToken: s.signer != nil,
		WSPath:        s.wsPath(),
	}
	if roof, ok := reg.Find(set.SelectedRoofName); ok {
		page.Selected = &roof
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := setupTemplate.Execute(w, page); err != nil {
		s.logger.Error("rendering setup page failed", "error", err)
	}
}

func (s *Server) handleListRoofs(w http.ResponseWriter, r *http.Request) {
	reg := s.service.Registry(r.Context())
	if reg.Roofs == nil {
		reg.Roofs = []safety.RoofConfig{}
	}
	writeJSON(w, http.StatusOK, reg)
}

// handleSelectRoof persists the roof selection. An empty name clears it.
func (s *Server) handleSelectRoof(w http.ResponseWriter, r *http.Request) {
	var req selectRoofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.service.SelectRoof(r.Context(), req.RoofName); err != nil {
		writeMutationError(w, err)
		return
	}
	s.auditMutation(r, "roof selection saved", "roof", req.RoofName)
	writeJSON(w, http.StatusOK, map[string]string{"selectedRoofName": req.RoofName})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req safety.SolarSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.service.UpdateSolarSettings(r.Context(), req); err != nil {
		writeMutationError(w, err)
		return
	}
	s.auditMutation(r, "solar settings saved",
		"enabled", req.SolarLockoutEnabled,
		"max_altitude", req.MaxSolarAltitude,
	)
	writeJSON(w, http.StatusOK, s.service.Settings(r.Context()))
}
