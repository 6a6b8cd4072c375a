package handlers

import "net/http"

const apiVersion = "0.1.0"

// Health reports liveness for load balancers and uptime checks.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": apiVersion,
	})
}

// Root identifies the service for anyone poking at the base URL.
func (a *App) Root(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"name":    "Renderless API",
		"version": apiVersion,
		"health":  "/health",
	})
}
