package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/settings"
)

type MapSettingsOutput struct {
	Body poi.MapSettings
}

type PutMapSettingsInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	Body   poi.MapSettings
}

// SettingsHandler serves the shared map display configuration.
type SettingsHandler struct {
	svc    *settings.Service
	logger *slog.Logger
}

func NewSettingsHandler(svc *settings.Service, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, logger: logger}
}

func registerSettingsRoutes(api huma.API, h *SettingsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-map-settings",
		Method:      http.MethodGet,
		Path:        "/v1/settings/map",
		Summary:     "Get the map display settings",
		Tags:        []string{"settings"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "put-map-settings",
		Method:      http.MethodPut,
		Path:        "/v1/settings/map",
		Summary:     "Replace the map display settings",
		Tags:        []string{"settings"},
	}, h.Put)
}

func (h *SettingsHandler) Get(ctx context.Context, _ *struct{}) (*MapSettingsOutput, error) {
	ms, err := h.svc.Get(ctx)
	if err != nil {
		h.logger.Error("failed to load map settings", "error", err)
		return nil, huma.Error500InternalServerError("failed to load map settings")
	}
	return &MapSettingsOutput{Body: ms}, nil
}

func (h *SettingsHandler) Put(ctx context.Context, input *PutMapSettingsInput) (*MapSettingsOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}

	if err := h.svc.Put(ctx, input.Body); err != nil {
		if errors.Is(err, settings.ErrBadIconSizes) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.logger.Error("failed to store map settings", "error", err)
		return nil, huma.Error500InternalServerError("failed to store map settings")
	}

	ms, err := h.svc.Get(ctx)
	if err != nil {
		h.logger.Error("failed to reload map settings", "error", err)
		return nil, huma.Error500InternalServerError("failed to reload map settings")
	}
	return &MapSettingsOutput{Body: ms}, nil
}
