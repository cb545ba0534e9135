package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Alpaca device constants.
const (
	DeviceType       = "SafetyMonitor"
	DriverVersion    = "1.0.0"
	InterfaceVersion = 1
	Manufacturer     = "Skyroof"

	deviceDescription = "Roof safety monitor fusing manual override, solar lockout and roof status"
	driverInfo        = "Skyroof Safety Monitor Alpaca driver v" + DriverVersion
)

// AlpacaErrActionNotImpl is the Alpaca error number for an unsupported action.
const AlpacaErrActionNotImpl = 0x40C

const clientTransactionIDParam = "ClientTransactionID"

// alpacaResponse is the envelope every Alpaca endpoint returns. Value is
// omitted for methods that return nothing.
type alpacaResponse struct {
	ClientTransactionID uint32 `json:"ClientTransactionID"`
	ServerTransactionID uint32 `json:"ServerTransactionID"`
	ErrorNumber         int    `json:"ErrorNumber"`
	ErrorMessage        string `json:"ErrorMessage"`
	Value               any    `json:"Value,omitempty"`
}

// UniqueID derives a stable Alpaca UniqueID from the site id.
func UniqueID(siteID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("safetymonitor:"+siteID)).String()
}

// nextTransactionID returns the next server transaction number.
func (s *Server) nextTransactionID() uint32 {
	return s.transactionID.Add(1)
}

// writeAlpaca writes a successful Alpaca response.
func (s *Server) writeAlpaca(w http.ResponseWriter, r *http.Request, value any) {
	writeJSON(w, http.StatusOK, alpacaResponse{
		ClientTransactionID: clientTransactionID(r),
		ServerTransactionID: s.nextTransactionID(),
		Value:               value,
	})
}

// writeAlpacaError writes an Alpaca response carrying an error number.
func (s *Server) writeAlpacaError(w http.ResponseWriter, r *http.Request, number int, message string) {
	writeJSON(w, http.StatusOK, alpacaResponse{
		ClientTransactionID: clientTransactionID(r),
		ServerTransactionID: s.nextTransactionID(),
		ErrorNumber:         number,
		ErrorMessage:        message,
	})
}

// clientTransactionID reads ClientTransactionID case-insensitively from the
// query string or, for PUT, the form. Missing or invalid values read as 0.
func clientTransactionID(r *http.Request) uint32 {
	v, _ := param(r, clientTransactionIDParam)
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

// param looks a parameter up by case-insensitive name. Alpaca parameter
// names are case-insensitive, which url.Values does not support.
func param(r *http.Request, name string) (string, bool) {
	values := r.URL.Query()
	if r.Method == http.MethodPut {
		//nolint:errcheck // a malformed body leaves Form with the query only
		r.ParseForm()
		values = r.Form
	}
	for k, vs := range values {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

// formBool reads a required boolean form parameter.
func formBool(r *http.Request, name string) (bool, error) {
	v, ok := param(r, name)
	if !ok {
		return false, fmt.Errorf("%s is required", name)
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", name, v)
	}
	return b, nil
}

// formString reads a required string form parameter.
func formString(r *http.Request, name string) (string, error) {
	v, ok := param(r, name)
	if !ok {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

func (s *Server) handleGetConnected(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, true)
}

// handlePutConnected accepts the request; an HTTP device is always connected.
func (s *Server) handlePutConnected(w http.ResponseWriter, r *http.Request) {
	if _, err := formBool(r, "Connected"); err != nil {
		writePlainError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeAlpaca(w, r, nil)
}

func (s *Server) handleDeviceDescription(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, deviceDescription)
}

func (s *Server) handleDriverInfo(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, driverInfo)
}

func (s *Server) handleDriverVersion(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, DriverVersion)
}

func (s *Server) handleInterfaceVersion(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, InterfaceVersion)
}

func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, s.site.Name)
}

func (s *Server) handleSupportedActions(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, []string{})
}

// handleAction rejects every action: none are supported.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action, err := formString(r, "Action")
	if err != nil {
		writePlainError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeAlpacaError(w, r, AlpacaErrActionNotImpl, fmt.Sprintf("action %q is not implemented by this driver", action))
}

func (s *Server) handleCommandBlind(w http.ResponseWriter, r *http.Request) {
	if _, err := formString(r, "Command"); err != nil {
		writePlainError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeAlpaca(w, r, nil)
}

func (s *Server) handleCommandBool(w http.ResponseWriter, r *http.Request) {
	if _, err := formString(r, "Command"); err != nil {
		writePlainError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeAlpaca(w, r, false)
}

func (s *Server) handleCommandString(w http.ResponseWriter, r *http.Request) {
	if _, err := formString(r, "Command"); err != nil {
		writePlainError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeAlpaca(w, r, "")
}

// handleIsSafe answers the one question Alpaca clients poll for.
func (s *Server) handleIsSafe(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, s.service.Evaluate(r.Context()).IsSafe)
}

// Management API

type managementDescription struct {
	ServerName          string `json:"ServerName"`
	Manufacturer        string `json:"Manufacturer"`
	ManufacturerVersion string `json:"ManufacturerVersion"`
	Location            string `json:"Location"`
}

type configuredDevice struct {
	DeviceName   string `json:"DeviceName"`
	DeviceType   string `json:"DeviceType"`
	DeviceNumber int    `json:"DeviceNumber"`
	UniqueID     string `json:"UniqueID"`
}

func (s *Server) handleAPIVersions(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, []int{1})
}

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, managementDescription{
		ServerName:          s.site.Name,
		Manufacturer:        Manufacturer,
		ManufacturerVersion: s.version,
		Location:            s.site.Location,
	})
}

func (s *Server) handleConfiguredDevices(w http.ResponseWriter, r *http.Request) {
	s.writeAlpaca(w, r, []configuredDevice{{
		DeviceName:   s.site.Name,
		DeviceType:   DeviceType,
		DeviceNumber: 0,
		UniqueID:     s.uniqueID,
	}})
}
