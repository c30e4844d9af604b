package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/imaging"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// --- Huma Input/Output types ---

type ListBaseMapsOutput struct {
	Body struct {
		Maps []poi.BaseMap `json:"maps" doc:"All base maps, active one included"`
	}
}

type CreateBaseMapInput struct {
	UserID  string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	RawBody multipart.Form
}

type BaseMapOutput struct {
	Body poi.BaseMap
}

type BaseMapIDInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"Base map UUID" format:"uuid"`
}

type DeleteMapOutput struct {
	Body struct {
		Warning string `json:"warning,omitempty" doc:"Set when image cleanup failed"`
	}
}

type ListOverlaysOutput struct {
	Body struct {
		Overlays []poi.Overlay `json:"overlays" doc:"Overlays in display order"`
	}
}

type CreateOverlayInput struct {
	UserID  string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	RawBody multipart.Form
}

type OverlayOutput struct {
	Body poi.Overlay
}

type UpdateOverlayInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"Overlay UUID" format:"uuid"`
	Body   struct {
		Opacity      *float64 `json:"opacity,omitempty" doc:"New opacity, 0 to 1"`
		DisplayOrder *int     `json:"display_order,omitempty" doc:"New stacking position"`
	}
}

type OverlayIDInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"Overlay UUID" format:"uuid"`
}

// --- Handler ---

// MapHandler manages base map rasters and overlay layers.
type MapHandler struct {
	maps     storage.MapStore
	blobs    blob.Store
	maxBytes int64
	logger   *slog.Logger
}

func NewMapHandler(maps storage.MapStore, blobs blob.Store, maxBytes int64, logger *slog.Logger) *MapHandler {
	return &MapHandler{maps: maps, blobs: blobs, maxBytes: maxBytes, logger: logger}
}

func registerMapRoutes(api huma.API, h *MapHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-base-maps",
		Method:      http.MethodGet,
		Path:        "/v1/maps",
		Summary:     "List base maps",
		Tags:        []string{"maps"},
	}, h.ListBaseMaps)

	huma.Register(api, huma.Operation{
		OperationID:   "create-base-map",
		Method:        http.MethodPost,
		Path:          "/v1/maps",
		Summary:       "Upload a new base map",
		Tags:          []string{"maps"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateBaseMap)

	huma.Register(api, huma.Operation{
		OperationID: "activate-base-map",
		Method:      http.MethodPost,
		Path:        "/v1/maps/{id}/activate",
		Summary:     "Make one base map active",
		Tags:        []string{"maps"},
	}, h.ActivateBaseMap)

	huma.Register(api, huma.Operation{
		OperationID: "delete-base-map",
		Method:      http.MethodDelete,
		Path:        "/v1/maps/{id}",
		Summary:     "Delete a base map",
		Tags:        []string{"maps"},
	}, h.DeleteBaseMap)

	huma.Register(api, huma.Operation{
		OperationID: "list-overlays",
		Method:      http.MethodGet,
		Path:        "/v1/overlays",
		Summary:     "List overlays",
		Tags:        []string{"maps"},
	}, h.ListOverlays)

	huma.Register(api, huma.Operation{
		OperationID:   "create-overlay",
		Method:        http.MethodPost,
		Path:          "/v1/overlays",
		Summary:       "Upload a new overlay",
		Tags:          []string{"maps"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateOverlay)

	huma.Register(api, huma.Operation{
		OperationID: "update-overlay",
		Method:      http.MethodPatch,
		Path:        "/v1/overlays/{id}",
		Summary:     "Adjust an overlay's opacity or order",
		Tags:        []string{"maps"},
	}, h.UpdateOverlay)

	huma.Register(api, huma.Operation{
		OperationID: "delete-overlay",
		Method:      http.MethodDelete,
		Path:        "/v1/overlays/{id}",
		Summary:     "Delete an overlay",
		Tags:        []string{"maps"},
	}, h.DeleteOverlay)
}

func (h *MapHandler) ListBaseMaps(ctx context.Context, _ *struct{}) (*ListBaseMapsOutput, error) {
	maps, err := h.maps.ListBaseMaps(ctx)
	if err != nil {
		h.logger.Error("failed to list base maps", "error", err)
		return nil, huma.Error500InternalServerError("failed to list base maps")
	}
	out := &ListBaseMapsOutput{}
	out.Body.Maps = maps
	if out.Body.Maps == nil {
		out.Body.Maps = []poi.BaseMap{}
	}
	return out, nil
}

// convertUpload validates and re-encodes a multipart raster under the
// given field name.
func (h *MapHandler) convertUpload(form multipart.Form, field string) ([]byte, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, huma.Error400BadRequest("no file in upload")
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, huma.Error400BadRequest("unreadable multipart file")
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, huma.Error400BadRequest("unreadable multipart file")
	}

	if err := imaging.ValidateUpload(headers[0].Filename, data, h.maxBytes); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	converted, err := imaging.Convert(data, nil, imaging.PresetHigh)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	metrics.ConvertedBytes.Add(float64(len(converted.Data)))
	return converted.Data, nil
}

func formValue(form multipart.Form, field string) string {
	if vals := form.Value[field]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (h *MapHandler) CreateBaseMap(ctx context.Context, input *CreateBaseMapInput) (*BaseMapOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	name := formValue(input.RawBody, "name")
	if name == "" {
		return nil, huma.Error422UnprocessableEntity("name is required")
	}

	data, err := h.convertUpload(input.RawBody, "file")
	if err != nil {
		return nil, err
	}

	m := &poi.BaseMap{ID: uuid.New(), Name: name}
	url, err := h.blobs.Upload(ctx, blob.BucketMaps, imaging.WebPName(m.ID.String()), data)
	if err != nil {
		h.logger.Error("base map upload failed", "name", name, "error", err)
		return nil, huma.Error500InternalServerError("base map upload failed")
	}
	m.ImageURL = url

	if err := h.maps.CreateBaseMap(ctx, m); err != nil {
		h.logger.Error("failed to create base map", "name", name, "error", err)
		return nil, huma.Error500InternalServerError("failed to create base map")
	}
	return &BaseMapOutput{Body: *m}, nil
}

func (h *MapHandler) ActivateBaseMap(ctx context.Context, input *BaseMapIDInput) (*ListBaseMapsOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid map id")
	}

	if err := h.maps.ActivateBaseMap(ctx, id); err != nil {
		if errors.Is(err, storage.ErrMapNotFound) {
			return nil, huma.Error404NotFound("base map not found")
		}
		h.logger.Error("failed to activate base map", "map_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to activate base map")
	}
	return h.ListBaseMaps(ctx, nil)
}

func (h *MapHandler) DeleteBaseMap(ctx context.Context, input *BaseMapIDInput) (*DeleteMapOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid map id")
	}

	imageURL, err := h.maps.DeleteBaseMap(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrMapNotFound) {
			return nil, huma.Error404NotFound("base map not found")
		}
		h.logger.Error("failed to delete base map", "map_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to delete base map")
	}

	out := &DeleteMapOutput{}
	out.Body.Warning = h.deleteImage(ctx, imageURL)
	return out, nil
}

func (h *MapHandler) ListOverlays(ctx context.Context, _ *struct{}) (*ListOverlaysOutput, error) {
	overlays, err := h.maps.ListOverlays(ctx)
	if err != nil {
		h.logger.Error("failed to list overlays", "error", err)
		return nil, huma.Error500InternalServerError("failed to list overlays")
	}
	out := &ListOverlaysOutput{}
	out.Body.Overlays = overlays
	if out.Body.Overlays == nil {
		out.Body.Overlays = []poi.Overlay{}
	}
	return out, nil
}

func (h *MapHandler) CreateOverlay(ctx context.Context, input *CreateOverlayInput) (*OverlayOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	name := formValue(input.RawBody, "name")
	if name == "" {
		return nil, huma.Error422UnprocessableEntity("name is required")
	}

	opacity := 1.0
	if v := formValue(input.RawBody, "opacity"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return nil, huma.Error422UnprocessableEntity("opacity must be between 0 and 1")
		}
		opacity = parsed
	}
	displayOrder := 0
	if v := formValue(input.RawBody, "display_order"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("display_order must be an integer")
		}
		displayOrder = parsed
	}

	data, err := h.convertUpload(input.RawBody, "file")
	if err != nil {
		return nil, err
	}

	o := &poi.Overlay{ID: uuid.New(), Name: name, Opacity: opacity, DisplayOrder: displayOrder}
	url, err := h.blobs.Upload(ctx, blob.BucketMaps, imaging.WebPName(o.ID.String()), data)
	if err != nil {
		h.logger.Error("overlay upload failed", "name", name, "error", err)
		return nil, huma.Error500InternalServerError("overlay upload failed")
	}
	o.ImageURL = url

	if err := h.maps.CreateOverlay(ctx, o); err != nil {
		h.logger.Error("failed to create overlay", "name", name, "error", err)
		return nil, huma.Error500InternalServerError("failed to create overlay")
	}
	return &OverlayOutput{Body: *o}, nil
}

func (h *MapHandler) UpdateOverlay(ctx context.Context, input *UpdateOverlayInput) (*OverlayOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid overlay id")
	}
	if input.Body.Opacity != nil && (*input.Body.Opacity < 0 || *input.Body.Opacity > 1) {
		return nil, huma.Error422UnprocessableEntity("opacity must be between 0 and 1")
	}

	o, err := h.maps.UpdateOverlay(ctx, id, storage.OverlayPatch{
		Opacity:      input.Body.Opacity,
		DisplayOrder: input.Body.DisplayOrder,
	})
	if err != nil {
		if errors.Is(err, storage.ErrMapNotFound) {
			return nil, huma.Error404NotFound("overlay not found")
		}
		h.logger.Error("failed to update overlay", "overlay_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to update overlay")
	}
	return &OverlayOutput{Body: *o}, nil
}

func (h *MapHandler) DeleteOverlay(ctx context.Context, input *OverlayIDInput) (*DeleteMapOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid overlay id")
	}

	imageURL, err := h.maps.DeleteOverlay(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrMapNotFound) {
			return nil, huma.Error404NotFound("overlay not found")
		}
		h.logger.Error("failed to delete overlay", "overlay_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to delete overlay")
	}

	out := &DeleteMapOutput{}
	out.Body.Warning = h.deleteImage(ctx, imageURL)
	return out, nil
}

// deleteImage removes a raster from the maps bucket after its row is
// gone. Failures leave the file for the sweeper.
func (h *MapHandler) deleteImage(ctx context.Context, url string) string {
	path, ok := blob.PathInBucket(url, blob.BucketMaps)
	if !ok {
		return ""
	}
	if err := h.blobs.Delete(ctx, blob.BucketMaps, []string{path}); err != nil {
		h.logger.Warn("map image cleanup incomplete", "url", url, "error", err)
		return "the map image could not be removed and will be cleaned up later"
	}
	return ""
}
