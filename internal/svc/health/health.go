// Package health implements the liveness endpoint used by monitoring and
// integration tests.
package health

import (
	"net/http"
)

// Service provides health check functionality.
type Service struct{}

// New creates a new health service instance.
func New() *Service {
	return &Service{}
}

// RegisterRoutes adds /healthz to the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}
