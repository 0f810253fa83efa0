// Package server wires HTTP handlers into a ServeMux for the Huddle
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, the room session endpoint, and the test page. The
// registry is injected rather than shared as a package global so every route
// set owns its room state.
func SetupRoutes(registry *Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws/{room}/{name}", WebSocketHandler(registry))
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
