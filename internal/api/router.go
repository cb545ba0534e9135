package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skyroof/safetymonitor/internal/auth"
)

const defaultWSPath = "/api/v1/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metrics.Middleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})

	// Operational endpoints (no auth required)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/system", s.handleSystem)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Alpaca management API
	r.Route("/management", func(r chi.Router) {
		r.Get("/apiversions", s.handleAPIVersions)
		r.Get("/v1/description", s.handleDescription)
		r.Get("/v1/configureddevices", s.handleConfiguredDevices)
	})

	// Alpaca device API plus extension endpoints
	r.Route("/api/v1/safetymonitor/{deviceNumber}", func(r chi.Router) {
		r.Use(s.deviceNumberMiddleware)

		r.Get("/connected", s.handleGetConnected)
		r.Put("/connected", s.handlePutConnected)
		r.Get("/description", s.handleDeviceDescription)
		r.Get("/driverinfo", s.handleDriverInfo)
		r.Get("/driverversion", s.handleDriverVersion)
		r.Get("/interfaceversion", s.handleInterfaceVersion)
		r.Get("/name", s.handleName)
		r.Get("/supportedactions", s.handleSupportedActions)
		r.Put("/action", s.handleAction)
		r.Put("/commandblind", s.handleCommandBlind)
		r.Put("/commandbool", s.handleCommandBool)
		r.Put("/commandstring", s.handleCommandString)
		r.Get("/issafe", s.handleIsSafe)

		r.Get("/solarstatus", s.handleSolarStatus)
		r.Get("/lockoutperiod", s.handleLockoutPeriod)
		r.Get("/roofstatus", s.handleRoofStatus)
		r.Get("/decision", s.handleDecision)
		r.Get("/override", s.handleGetOverride)
		r.Group(func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermOverrideWrite))
			r.Post("/override", s.handleSetOverride)
			r.Put("/override", s.handleSetOverride)
		})
	})

	// Setup pages and their JSON endpoints
	r.Get("/setup", s.handleSetupPage)
	r.Route("/setup/v1/safetymonitor/{deviceNumber}", func(r chi.Router) {
		r.Use(s.deviceNumberMiddleware)

		r.Get("/setup", s.handleSetupPage)
		r.Get("/roofs", s.handleListRoofs)
		r.With(s.requirePermission(auth.PermRoofSelect)).Post("/selectroof", s.handleSelectRoof)
		r.With(s.requirePermission(auth.PermSettingsWrite)).Put("/settings", s.handleUpdateSettings)
	})

	// WebSocket (read-only event stream)
	r.Get(s.wsPath(), s.handleWebSocket)

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return defaultWSPath
	}
	return s.wsCfg.Path
}
