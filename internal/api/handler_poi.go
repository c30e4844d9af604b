package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/coord"
	"github.com/LinkesAuge/duneatlas/internal/imaging"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// --- Huma Input/Output types ---

type CreatePoiBody struct {
	MapType     string      `json:"map_type" doc:"hagga_basin or deep_desert" required:"true"`
	GridCell    string      `json:"grid_cell,omitempty" doc:"Deep desert cell, A1-I9"`
	X           float64     `json:"x" doc:"Pixel-space X coordinate"`
	Y           float64     `json:"y" doc:"Pixel-space Y coordinate"`
	Title       string      `json:"title" doc:"POI title" required:"true" minLength:"1"`
	Description string      `json:"description,omitempty" doc:"POI description"`
	TypeID      uuid.UUID   `json:"poi_type_id" doc:"POI type UUID" required:"true"`
	Privacy     string      `json:"privacy_level" doc:"global, private, or shared" required:"true"`
	SharedWith  []uuid.UUID `json:"shared_with,omitempty" doc:"Share list, shared privacy only"`
}

type CreatePoiInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	Body   CreatePoiBody
}

type PoiOutput struct {
	Body poi.Poi
}

type GetPoiInput struct {
	UserID string `header:"X-User-ID" doc:"Viewing user UUID" required:"false"`
	ID     string `path:"id" doc:"POI UUID" format:"uuid"`
}

type ListPoisInput struct {
	UserID   string `header:"X-User-ID" doc:"Viewing user UUID" required:"false"`
	MapType  string `query:"map_type" doc:"Restrict to one map" required:"false"`
	GridCell string `query:"grid_cell" doc:"Restrict to one deep desert cell" required:"false"`
	Cursor   string `query:"cursor" doc:"Opaque page cursor" required:"false"`
	Limit    int    `query:"limit" doc:"Page size" required:"false"`
}

type PoiListResponse struct {
	Pois       []poi.Poi `json:"pois" doc:"POIs visible to the viewer, newest first"`
	NextCursor string    `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool      `json:"has_more" doc:"Whether another page may exist"`
}

type ListPoisOutput struct {
	Body PoiListResponse
}

type UpdatePoiBody struct {
	Title       *string    `json:"title,omitempty" doc:"New title"`
	Description *string    `json:"description,omitempty" doc:"New description"`
	TypeID      *uuid.UUID `json:"poi_type_id,omitempty" doc:"New POI type UUID"`
	Privacy     *string    `json:"privacy_level,omitempty" doc:"New privacy level"`
}

type UpdatePoiInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"POI UUID" format:"uuid"`
	Body   UpdatePoiBody
}

type UpdatePositionInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"POI UUID" format:"uuid"`
	Body   struct {
		X float64 `json:"x" doc:"New pixel-space X coordinate"`
		Y float64 `json:"y" doc:"New pixel-space Y coordinate"`
	}
}

type DeletePoiInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"POI UUID" format:"uuid"`
}

type DeletePoiOutput struct {
	Body struct {
		Warning string `json:"warning,omitempty" doc:"Set when artifact cleanup partially failed"`
	}
}

type SetSharesInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"POI UUID" format:"uuid"`
	Body   struct {
		UserIDs []uuid.UUID `json:"user_ids" doc:"Replacement share list"`
	}
}

type AddLinkInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID     string `path:"id" doc:"POI UUID" format:"uuid"`
	Body   struct {
		EntityID   uuid.UUID `json:"entity_id" doc:"Linked entity UUID" required:"true"`
		EntityType string    `json:"entity_type" doc:"item or schematic" required:"true"`
	}
}

type RemoveLinkInput struct {
	UserID   string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID       string `path:"id" doc:"POI UUID" format:"uuid"`
	EntityID string `path:"entity_id" doc:"Linked entity UUID" format:"uuid"`
}

type ListLinksInput struct {
	UserID string `header:"X-User-ID" doc:"Viewing user UUID" required:"false"`
	ID     string `path:"id" doc:"POI UUID" format:"uuid"`
}

type ListLinksOutput struct {
	Body struct {
		Links []poi.EntityLink `json:"links" doc:"Entity links of the POI"`
	}
}

type ListPoiTypesOutput struct {
	Body struct {
		Types []poi.PoiType `json:"types" doc:"Known POI types"`
	}
}

type CreatePoiTypeInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	Body   struct {
		Name               string      `json:"name" doc:"Type name" required:"true" minLength:"1"`
		Icon               poi.IconRef `json:"icon" doc:"Tagged icon reference" required:"true"`
		Color              string      `json:"color" doc:"Display color" required:"true"`
		Category           string      `json:"category,omitempty" doc:"Grouping category"`
		DefaultDescription string      `json:"default_description,omitempty" doc:"Description prefill"`
	}
}

type PoiTypeOutput struct {
	Body poi.PoiType
}

type UploadPoiTypeIconInput struct {
	UserID  string    `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID      uuid.UUID `path:"id" doc:"POI type UUID"`
	RawBody multipart.Form
}

// --- Handler ---

type PoiHandler struct {
	pois   storage.PoiStore
	blobs  blob.Store
	logger *slog.Logger
}

func NewPoiHandler(pois storage.PoiStore, blobs blob.Store, logger *slog.Logger) *PoiHandler {
	return &PoiHandler{pois: pois, blobs: blobs, logger: logger}
}

func registerPoiRoutes(api huma.API, h *PoiHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-poi",
		Method:        http.MethodPost,
		Path:          "/v1/pois",
		Summary:       "Create a POI",
		Tags:          []string{"pois"},
		DefaultStatus: http.StatusCreated,
	}, h.CreatePoi)

	huma.Register(api, huma.Operation{
		OperationID: "list-pois",
		Method:      http.MethodGet,
		Path:        "/v1/pois",
		Summary:     "List POIs visible to the viewer",
		Tags:        []string{"pois"},
	}, h.ListPois)

	huma.Register(api, huma.Operation{
		OperationID: "get-poi",
		Method:      http.MethodGet,
		Path:        "/v1/pois/{id}",
		Summary:     "Get a POI",
		Tags:        []string{"pois"},
	}, h.GetPoi)

	huma.Register(api, huma.Operation{
		OperationID: "update-poi",
		Method:      http.MethodPatch,
		Path:        "/v1/pois/{id}",
		Summary:     "Update POI fields",
		Tags:        []string{"pois"},
	}, h.UpdatePoi)

	huma.Register(api, huma.Operation{
		OperationID: "delete-poi",
		Method:      http.MethodDelete,
		Path:        "/v1/pois/{id}",
		Summary:     "Delete a POI and its screenshots",
		Tags:        []string{"pois"},
	}, h.DeletePoi)

	huma.Register(api, huma.Operation{
		OperationID: "update-poi-position",
		Method:      http.MethodPut,
		Path:        "/v1/pois/{id}/position",
		Summary:     "Move a POI to a new position",
		Tags:        []string{"pois"},
	}, h.UpdatePosition)

	huma.Register(api, huma.Operation{
		OperationID: "set-poi-shares",
		Method:      http.MethodPut,
		Path:        "/v1/pois/{id}/shares",
		Summary:     "Replace a shared POI's share list",
		Tags:        []string{"pois"},
	}, h.SetShares)

	huma.Register(api, huma.Operation{
		OperationID:   "add-poi-link",
		Method:        http.MethodPost,
		Path:          "/v1/pois/{id}/links",
		Summary:       "Link a POI to an item or schematic",
		Tags:          []string{"pois"},
		DefaultStatus: http.StatusCreated,
	}, h.AddLink)

	huma.Register(api, huma.Operation{
		OperationID:   "remove-poi-link",
		Method:        http.MethodDelete,
		Path:          "/v1/pois/{id}/links/{entity_id}",
		Summary:       "Remove an entity link",
		Tags:          []string{"pois"},
		DefaultStatus: http.StatusNoContent,
	}, h.RemoveLink)

	huma.Register(api, huma.Operation{
		OperationID: "list-poi-links",
		Method:      http.MethodGet,
		Path:        "/v1/pois/{id}/links",
		Summary:     "List a POI's entity links",
		Tags:        []string{"pois"},
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "list-poi-types",
		Method:      http.MethodGet,
		Path:        "/v1/poi-types",
		Summary:     "List POI types",
		Tags:        []string{"poi-types"},
	}, h.ListPoiTypes)

	huma.Register(api, huma.Operation{
		OperationID:   "create-poi-type",
		Method:        http.MethodPost,
		Path:          "/v1/poi-types",
		Summary:       "Create a POI type",
		Tags:          []string{"poi-types"},
		DefaultStatus: http.StatusCreated,
	}, h.CreatePoiType)

	huma.Register(api, huma.Operation{
		OperationID: "upload-poi-type-icon",
		Method:      http.MethodPut,
		Path:        "/v1/poi-types/{id}/icon",
		Summary:     "Upload a POI type icon image",
		Tags:        []string{"poi-types"},
	}, h.UploadPoiTypeIcon)
}

// parseUserID parses the acting user header. Mutating operations
// require it; reads fall back to the anonymous viewer uuid.Nil.
func parseUserID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, errors.New("missing X-User-ID header")
	}
	return uuid.Parse(s)
}

func viewerID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// fetchOwned loads a POI and checks the acting user owns it. A POI the
// user cannot see at all reads as not found, never as forbidden.
func (h *PoiHandler) fetchOwned(ctx context.Context, id, user uuid.UUID) (*poi.Poi, error) {
	p, err := h.pois.GetPoi(ctx, id, user)
	if err != nil {
		if errors.Is(err, storage.ErrPoiNotFound) {
			return nil, huma.Error404NotFound("poi not found")
		}
		h.logger.Error("failed to get poi", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to get poi")
	}
	if p.CreatedBy != user {
		return nil, huma.Error403Forbidden("only the owner may modify this poi")
	}
	return p, nil
}

func (h *PoiHandler) CreatePoi(ctx context.Context, input *CreatePoiInput) (*PoiOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}

	p := &poi.Poi{
		ID:          uuid.New(),
		MapType:     poi.MapType(input.Body.MapType),
		GridCell:    input.Body.GridCell,
		Position:    coord.Pixel{X: input.Body.X, Y: input.Body.Y},
		Title:       input.Body.Title,
		Description: input.Body.Description,
		TypeID:      input.Body.TypeID,
		Privacy:     poi.Privacy(input.Body.Privacy),
		SharedWith:  input.Body.SharedWith,
		CreatedBy:   user,
	}
	if err := p.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	if err := h.pois.CreatePoi(ctx, p); err != nil {
		h.logger.Error("failed to create poi", "title", p.Title, "error", err)
		return nil, huma.Error500InternalServerError("failed to create poi")
	}
	if p.Screenshots == nil {
		p.Screenshots = []poi.Screenshot{}
	}

	return &PoiOutput{Body: *p}, nil
}

func (h *PoiHandler) GetPoi(ctx context.Context, input *GetPoiInput) (*PoiOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}

	p, err := h.pois.GetPoi(ctx, id, viewerID(input.UserID))
	if err != nil {
		if errors.Is(err, storage.ErrPoiNotFound) {
			return nil, huma.Error404NotFound("poi not found")
		}
		h.logger.Error("failed to get poi", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to get poi")
	}

	return &PoiOutput{Body: *p}, nil
}

func (h *PoiHandler) ListPois(ctx context.Context, input *ListPoisInput) (*ListPoisOutput, error) {
	if input.MapType != "" && !poi.MapType(input.MapType).Valid() {
		return nil, huma.Error400BadRequest("unknown map type")
	}
	if input.GridCell != "" {
		if _, ok := coord.ParseCell(input.GridCell); !ok {
			return nil, huma.Error400BadRequest("grid cell must match A1-I9")
		}
	}

	page, err := h.pois.ListPois(ctx, storage.ListPoisParams{
		Viewer:   viewerID(input.UserID),
		MapType:  poi.MapType(input.MapType),
		GridCell: input.GridCell,
		Cursor:   input.Cursor,
		Limit:    input.Limit,
	})
	if err != nil {
		if errors.Is(err, storage.ErrBadCursor) {
			return nil, huma.Error400BadRequest("invalid cursor")
		}
		h.logger.Error("failed to list pois", "map_type", input.MapType, "error", err)
		return nil, huma.Error500InternalServerError("failed to list pois")
	}

	if page.Pois == nil {
		page.Pois = []poi.Poi{}
	}
	return &ListPoisOutput{Body: PoiListResponse{
		Pois:       page.Pois,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (h *PoiHandler) UpdatePoi(ctx context.Context, input *UpdatePoiInput) (*PoiOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}
	if _, err := h.fetchOwned(ctx, id, user); err != nil {
		return nil, err
	}

	patch := storage.PoiPatch{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		TypeID:      input.Body.TypeID,
	}
	if input.Body.Privacy != nil {
		privacy := poi.Privacy(*input.Body.Privacy)
		if !privacy.Valid() {
			return nil, huma.Error422UnprocessableEntity("unknown privacy level")
		}
		patch.Privacy = &privacy
	}
	if input.Body.Title != nil && *input.Body.Title == "" {
		return nil, huma.Error422UnprocessableEntity("title is required")
	}

	p, err := h.pois.UpdatePoi(ctx, id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrPoiNotFound) {
			return nil, huma.Error404NotFound("poi not found")
		}
		h.logger.Error("failed to update poi", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to update poi")
	}

	return &PoiOutput{Body: *p}, nil
}

func (h *PoiHandler) UpdatePosition(ctx context.Context, input *UpdatePositionInput) (*PoiOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}

	p, err := h.fetchOwned(ctx, id, user)
	if err != nil {
		return nil, err
	}

	pos := coord.Pixel{X: input.Body.X, Y: input.Body.Y}
	if !coord.Validate(pos, p.MapType.Size()) {
		return nil, huma.Error422UnprocessableEntity("coordinate outside map bounds")
	}

	updated, err := h.pois.UpdatePosition(ctx, id, pos)
	if err != nil {
		h.logger.Error("failed to move poi", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to move poi")
	}

	return &PoiOutput{Body: *updated}, nil
}

func (h *PoiHandler) DeletePoi(ctx context.Context, input *DeletePoiInput) (*DeletePoiOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}
	if _, err := h.fetchOwned(ctx, id, user); err != nil {
		return nil, err
	}

	urls, err := h.pois.DeletePoi(ctx, id)
	if err != nil {
		h.logger.Error("failed to delete poi", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to delete poi")
	}

	out := &DeletePoiOutput{}
	if warn := deleteArtifacts(ctx, h.blobs, urls); warn != "" {
		h.logger.Warn("screenshot cleanup incomplete", "poi_id", id, "detail", warn)
		out.Body.Warning = warn
	}
	return out, nil
}

func (h *PoiHandler) SetShares(ctx context.Context, input *SetSharesInput) (*PoiOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}

	p, err := h.fetchOwned(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if p.Privacy != poi.PrivacyShared && len(input.Body.UserIDs) > 0 {
		return nil, huma.Error422UnprocessableEntity("share list requires shared privacy level")
	}

	if err := h.pois.SetShares(ctx, id, input.Body.UserIDs); err != nil {
		if errors.Is(err, storage.ErrPoiNotFound) {
			return nil, huma.Error404NotFound("poi not found")
		}
		h.logger.Error("failed to set shares", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to set shares")
	}

	updated, err := h.pois.GetPoi(ctx, id, user)
	if err != nil {
		h.logger.Error("failed to reload poi", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to reload poi")
	}
	return &PoiOutput{Body: *updated}, nil
}

func (h *PoiHandler) AddLink(ctx context.Context, input *AddLinkInput) (*ListLinksOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}
	if input.Body.EntityType != "item" && input.Body.EntityType != "schematic" {
		return nil, huma.Error422UnprocessableEntity("entity type must be item or schematic")
	}
	if _, err := h.fetchOwned(ctx, id, user); err != nil {
		return nil, err
	}

	link := poi.EntityLink{
		PoiID:      id,
		EntityID:   input.Body.EntityID,
		EntityType: input.Body.EntityType,
	}
	if err := h.pois.AddEntityLink(ctx, link); err != nil {
		h.logger.Error("failed to add entity link", "poi_id", id, "entity_id", link.EntityID, "error", err)
		return nil, huma.Error500InternalServerError("failed to add entity link")
	}

	return h.listLinks(ctx, id)
}

func (h *PoiHandler) RemoveLink(ctx context.Context, input *RemoveLinkInput) (*struct{}, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}
	entityID, err := uuid.Parse(input.EntityID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid entity id")
	}
	if _, err := h.fetchOwned(ctx, id, user); err != nil {
		return nil, err
	}

	if err := h.pois.RemoveEntityLink(ctx, id, entityID); err != nil {
		h.logger.Error("failed to remove entity link", "poi_id", id, "entity_id", entityID, "error", err)
		return nil, huma.Error500InternalServerError("failed to remove entity link")
	}
	return nil, nil
}

func (h *PoiHandler) ListLinks(ctx context.Context, input *ListLinksInput) (*ListLinksOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}

	if _, err := h.pois.GetPoi(ctx, id, viewerID(input.UserID)); err != nil {
		if errors.Is(err, storage.ErrPoiNotFound) {
			return nil, huma.Error404NotFound("poi not found")
		}
		h.logger.Error("failed to get poi", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to get poi")
	}

	return h.listLinks(ctx, id)
}

func (h *PoiHandler) listLinks(ctx context.Context, id uuid.UUID) (*ListLinksOutput, error) {
	links, err := h.pois.ListEntityLinks(ctx, id)
	if err != nil {
		h.logger.Error("failed to list entity links", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to list entity links")
	}
	out := &ListLinksOutput{}
	out.Body.Links = links
	if out.Body.Links == nil {
		out.Body.Links = []poi.EntityLink{}
	}
	return out, nil
}

func (h *PoiHandler) ListPoiTypes(ctx context.Context, _ *struct{}) (*ListPoiTypesOutput, error) {
	types, err := h.pois.ListPoiTypes(ctx)
	if err != nil {
		h.logger.Error("failed to list poi types", "error", err)
		return nil, huma.Error500InternalServerError("failed to list poi types")
	}
	out := &ListPoiTypesOutput{}
	out.Body.Types = types
	if out.Body.Types == nil {
		out.Body.Types = []poi.PoiType{}
	}
	return out, nil
}

func (h *PoiHandler) CreatePoiType(ctx context.Context, input *CreatePoiTypeInput) (*PoiTypeOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	if input.Body.Icon.Kind != poi.IconURL && input.Body.Icon.Kind != poi.IconGlyph {
		return nil, huma.Error422UnprocessableEntity("icon kind must be url or glyph")
	}

	t := &poi.PoiType{
		ID:                 uuid.New(),
		Name:               input.Body.Name,
		Icon:               input.Body.Icon,
		Color:              input.Body.Color,
		Category:           input.Body.Category,
		DefaultDescription: input.Body.DefaultDescription,
	}
	if err := h.pois.CreatePoiType(ctx, t); err != nil {
		h.logger.Error("failed to create poi type", "name", t.Name, "error", err)
		return nil, huma.Error500InternalServerError("failed to create poi type")
	}
	return &PoiTypeOutput{Body: *t}, nil
}

// UploadPoiTypeIcon converts an uploaded raster to a small WebP icon
// and points the type's icon reference at it. Re-uploading writes the
// same object path, so stale icon artifacts never accumulate.
func (h *PoiHandler) UploadPoiTypeIcon(ctx context.Context, input *UploadPoiTypeIconInput) (*PoiTypeOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}

	headers := input.RawBody.File["file"]
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

	if err := imaging.ValidateUpload(headers[0].Filename, data, 0); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	converted, err := imaging.Convert(data, nil, imaging.PresetIcon)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	metrics.ConvertedBytes.Add(float64(len(converted.Data)))

	url, err := h.blobs.Upload(ctx, blob.BucketIcons, imaging.WebPName(input.ID.String()), converted.Data)
	if err != nil {
		h.logger.Error("icon upload failed", "type_id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("icon upload failed")
	}

	t, err := h.pois.SetPoiTypeIcon(ctx, input.ID, poi.IconRef{Kind: poi.IconURL, Value: url})
	if err != nil {
		if errors.Is(err, storage.ErrTypeNotFound) {
			return nil, huma.Error404NotFound("poi type not found")
		}
		h.logger.Error("failed to set poi type icon", "type_id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to set poi type icon")
	}
	return &PoiTypeOutput{Body: *t}, nil
}

// deleteArtifacts removes screenshot blobs after the owning row is
// gone. Failures leave orphans for the sweeper, so they only warn.
func deleteArtifacts(ctx context.Context, blobs blob.Store, urls []string) string {
	var paths []string
	for _, u := range urls {
		if p, ok := blob.PathInBucket(u, blob.BucketScreenshots); ok {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return ""
	}
	if err := blobs.Delete(ctx, blob.BucketScreenshots, paths); err != nil {
		return "some screenshot files could not be removed and will be cleaned up later"
	}
	return ""
}
