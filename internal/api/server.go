// Package api exposes the map annotation service over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/settings"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// Stores bundles the persistence interfaces the handlers depend on.
type Stores struct {
	Pois storage.PoiStore
	Grid storage.GridStore
	Maps storage.MapStore
}

// NewServer creates an HTTP server with all routes configured. When
// filesDir is non-empty the blob root is served under /files/ so
// returned public URLs resolve without a separate CDN.
func NewServer(
	logger *slog.Logger,
	stores Stores,
	blobs blob.Store,
	settingsSvc *settings.Service,
	backends map[string]Pinger,
	filesDir string,
	maxUploadBytes int64,
) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)

	humaAPI := humachi.New(mux, huma.DefaultConfig("Dune Atlas API", "1.0.0"))

	registerPoiRoutes(humaAPI, NewPoiHandler(stores.Pois, blobs, logger))
	registerScreenshotRoutes(humaAPI, NewScreenshotHandler(stores.Pois, blobs, maxUploadBytes, logger))
	registerGridRoutes(humaAPI, NewGridHandler(stores.Grid, blobs, maxUploadBytes, logger))
	registerMapRoutes(humaAPI, NewMapHandler(stores.Maps, blobs, maxUploadBytes, logger))
	registerSettingsRoutes(humaAPI, NewSettingsHandler(settingsSvc, logger))

	health := NewHealthHandler(backends, logger)
	mux.Get("/healthz", health.Livez)
	mux.Get("/readyz", health.Readyz)

	mux.Handle("/metrics", promhttp.Handler())

	if filesDir != "" {
		mux.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(filesDir))))
	}

	return mux
}
