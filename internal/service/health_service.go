package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jude-e/backend/internal/llm"
	"jude-e/backend/internal/retrieval"
)

// ComponentStatus is the readiness of one upstream.
type ComponentStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readiness is the combined result of all upstream checks.
type Readiness struct {
	Ready      bool              `json:"ready"`
	Components []ComponentStatus `json:"components"`
}

// HealthService probes the context service and the generation backend.
type HealthService struct {
	retriever retrieval.Retriever
	gateway   llm.Gateway
	timeout   time.Duration
}

func NewHealthService(retriever retrieval.Retriever, gateway llm.Gateway, timeout time.Duration) *HealthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthService{retriever: retriever, gateway: gateway, timeout: timeout}
}

// Ready runs both probes concurrently. A failing probe does not cancel the
// other; each is reported.
func (s *HealthService) Ready(ctx context.Context) *Readiness {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := []struct {
		name  string
		probe func(context.Context) error
	}{
		{name: "context", probe: s.retriever.Ready},
		{name: "generation", probe: s.gateway.Ready},
	}

	statuses := make([]ComponentStatus, len(checks))
	var mu sync.Mutex
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			status := ComponentStatus{Name: check.name, Ready: true}
			if err := check.probe(ctx); err != nil {
				status.Ready = false
				status.Error = err.Error()
			}
			mu.Lock()
			statuses[i] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	readiness := &Readiness{Ready: true, Components: statuses}
	for _, st := range statuses {
		if !st.Ready {
			readiness.Ready = false
		}
	}
	return readiness
}

// WaitUntilReady polls Ready until every upstream answers or ctx ends.
func (s *HealthService) WaitUntilReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r := s.Ready(ctx); r.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
