package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/j-veylop/creditbar/internal/config"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/services"
	"github.com/j-veylop/creditbar/internal/store"
)

// backend is an RPC client plus the in-process manager behind it, if any.
type backend struct {
	client  *rpc.Client
	manager *services.Manager
}

// openBackend connects to the configured remote backend, or starts one
// in-process when no backend URL is set.
func openBackend(cfg *config.Config, monitor bool) (*backend, error) {
	if cfg.RemoteBackend() {
		transport := rpc.NewHTTPTransport(cfg.BackendURL, &http.Client{Timeout: cfg.HTTPTimeout})
		return &backend{client: rpc.NewClient(transport)}, nil
	}

	mgr, err := services.NewManager(cfg, services.Options{Monitor: monitor})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return &backend{
		client:  rpc.NewClient(rpc.NewLocalTransport(mgr, mgr.Hub())),
		manager: mgr,
	}, nil
}

// newStore binds a store to the backend client.
func (b *backend) newStore(cfg *config.Config) *store.Store {
	return store.New(b.client, store.WithAnalyticsDays(cfg.AnalyticsDays))
}

// Close releases the client, then the manager.
func (b *backend) Close() error {
	var errs []error
	if err := b.client.Close(); err != nil {
		errs = append(errs, err)
	}
	if b.manager != nil {
		if err := b.manager.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initOptions maps process configuration onto the startup sequence.
func initOptions(cfg *config.Config, fresh bool) store.InitOptions {
	return store.InitOptions{
		Fresh:           fresh,
		ProbeTimeout:    cfg.ProbeTimeout,
		Timeout:         cfg.InitTimeout,
		RefreshInterval: cfg.RefreshInterval,
	}
}
