package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/imaging"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/pipeline"
	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// --- Huma Input/Output types ---

type UploadScreenshotsInput struct {
	UserID  string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID      string `path:"id" doc:"POI UUID" format:"uuid"`
	RawBody multipart.Form
}

type ScreenshotsResponse struct {
	Screenshots []poi.Screenshot `json:"screenshots" doc:"The POI's full screenshot list after the change"`
	Rejected    []string         `json:"rejected,omitempty" doc:"Per-file rejection reasons for files not uploaded"`
	Warning     string           `json:"warning,omitempty" doc:"Set when superseded artifact cleanup failed"`
}

type UploadScreenshotsOutput struct {
	Body ScreenshotsResponse
}

type RecropScreenshotInput struct {
	UserID       string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID           string `path:"id" doc:"POI UUID" format:"uuid"`
	ScreenshotID string `path:"sid" doc:"Screenshot UUID" format:"uuid"`
	Body         struct {
		Crop imaging.CropRect `json:"crop" doc:"New crop rectangle in source-image pixels" required:"true"`
	}
}

type DeleteScreenshotInput struct {
	UserID       string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	ID           string `path:"id" doc:"POI UUID" format:"uuid"`
	ScreenshotID string `path:"sid" doc:"Screenshot UUID" format:"uuid"`
}

// --- Handler ---

// ScreenshotHandler runs the crop-then-upload pipeline for POI
// screenshot attachments.
type ScreenshotHandler struct {
	pois     storage.PoiStore
	blobs    blob.Store
	maxBytes int64
	logger   *slog.Logger
}

func NewScreenshotHandler(pois storage.PoiStore, blobs blob.Store, maxBytes int64, logger *slog.Logger) *ScreenshotHandler {
	return &ScreenshotHandler{pois: pois, blobs: blobs, maxBytes: maxBytes, logger: logger}
}

func registerScreenshotRoutes(api huma.API, h *ScreenshotHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "upload-poi-screenshots",
		Method:        http.MethodPost,
		Path:          "/v1/pois/{id}/screenshots",
		Summary:       "Attach screenshots to a POI",
		Tags:          []string{"screenshots"},
		DefaultStatus: http.StatusCreated,
	}, h.Upload)

	huma.Register(api, huma.Operation{
		OperationID: "recrop-poi-screenshot",
		Method:      http.MethodPut,
		Path:        "/v1/pois/{id}/screenshots/{sid}",
		Summary:     "Re-crop a screenshot from its original",
		Tags:        []string{"screenshots"},
	}, h.Recrop)

	huma.Register(api, huma.Operation{
		OperationID: "delete-poi-screenshot",
		Method:      http.MethodDelete,
		Path:        "/v1/pois/{id}/screenshots/{sid}",
		Summary:     "Remove a screenshot from a POI",
		Tags:        []string{"screenshots"},
	}, h.Delete)
}

// fetchOwned mirrors PoiHandler.fetchOwned for attachment operations.
func (h *ScreenshotHandler) fetchOwned(ctx context.Context, id, user uuid.UUID) (*poi.Poi, error) {
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

// Upload accepts a multipart batch under the "files" field. An
// optional "crops" field holds a JSON object mapping file names to
// crop rectangles; files without an entry are stored uncropped.
// Acceptance is per file: invalid files are reported in the response
// without blocking their siblings.
func (h *ScreenshotHandler) Upload(ctx context.Context, input *UploadScreenshotsInput) (*UploadScreenshotsOutput, error) {
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

	files, order, err := readFormFiles(input.RawBody.File["files"])
	if err != nil {
		return nil, huma.Error400BadRequest("unreadable multipart file")
	}
	if len(order) == 0 {
		return nil, huma.Error400BadRequest("no files in upload")
	}

	crops, err := parseCrops(input.RawBody.Value["crops"])
	if err != nil {
		return nil, huma.Error400BadRequest("crops must be a JSON object of file name to rectangle")
	}

	session := pipeline.NewSession(user, len(p.Screenshots), h.maxBytes)
	var rejected []string
	for _, rejErr := range session.AcceptBatch(files, order) {
		rejected = append(rejected, rejErr.Error())
	}

	for {
		name, _, ok := session.Current()
		if !ok {
			break
		}
		if rect, found := crops[name]; found {
			err = session.ConfirmCrop(rect)
		} else {
			err = session.SkipCrop()
		}
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
	}

	if len(session.Pending()) == 0 {
		return nil, huma.Error422UnprocessableEntity(joinReasons(rejected))
	}

	pending := session.Pending()
	result, err := session.Submit(ctx, h.blobs, p.Screenshots)
	if err != nil {
		h.logger.Error("screenshot submission failed", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("screenshot upload failed")
	}
	countUploads(pending)

	if err := h.pois.SetScreenshots(ctx, id, result.Screenshots); err != nil {
		h.logger.Error("failed to store screenshot list", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to store screenshot list")
	}

	out := &UploadScreenshotsOutput{Body: ScreenshotsResponse{
		Screenshots: result.Screenshots,
		Rejected:    rejected,
	}}
	out.Body.Warning = h.cleanup(ctx, id, result.Cleanup)
	return out, nil
}

// Recrop rebuilds a screenshot's display artifact from its stored
// original. The record keeps its ID; the superseded display artifact
// is removed once the new list is persisted.
func (h *ScreenshotHandler) Recrop(ctx context.Context, input *RecropScreenshotInput) (*UploadScreenshotsOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}
	sid, err := uuid.Parse(input.ScreenshotID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid screenshot id")
	}

	p, err := h.fetchOwned(ctx, id, user)
	if err != nil {
		return nil, err
	}

	shot, found := findScreenshot(p.Screenshots, sid)
	if !found {
		return nil, huma.Error404NotFound("screenshot not found")
	}

	path, ok := blob.PathInBucket(shot.OriginalURL, blob.BucketScreenshots)
	if !ok {
		h.logger.Error("screenshot original URL is foreign", "poi_id", id, "screenshot_id", sid, "url", shot.OriginalURL)
		return nil, huma.Error500InternalServerError("screenshot original unavailable")
	}
	source, err := h.blobs.Get(ctx, blob.BucketScreenshots, path)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, huma.Error404NotFound("screenshot original not found")
		}
		h.logger.Error("failed to read screenshot original", "poi_id", id, "screenshot_id", sid, "error", err)
		return nil, huma.Error500InternalServerError("failed to read screenshot original")
	}

	session := pipeline.NewSession(user, 0, h.maxBytes)
	if err := session.BeginRecrop(shot, source); err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	if err := session.ConfirmCrop(input.Body.Crop); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	pending := session.Pending()
	result, err := session.Submit(ctx, h.blobs, p.Screenshots)
	if err != nil {
		h.logger.Error("re-crop submission failed", "poi_id", id, "screenshot_id", sid, "error", err)
		return nil, huma.Error500InternalServerError("re-crop failed")
	}
	countUploads(pending)

	if err := h.pois.SetScreenshots(ctx, id, result.Screenshots); err != nil {
		h.logger.Error("failed to store screenshot list", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to store screenshot list")
	}

	out := &UploadScreenshotsOutput{Body: ScreenshotsResponse{Screenshots: result.Screenshots}}
	out.Body.Warning = h.cleanup(ctx, id, result.Cleanup)
	return out, nil
}

// Delete removes one screenshot record and both its artifacts. The
// record goes first; artifact deletion failures only warn since the
// sweeper reclaims leftovers.
func (h *ScreenshotHandler) Delete(ctx context.Context, input *DeleteScreenshotInput) (*UploadScreenshotsOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poi id")
	}
	sid, err := uuid.Parse(input.ScreenshotID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid screenshot id")
	}

	p, err := h.fetchOwned(ctx, id, user)
	if err != nil {
		return nil, err
	}

	shot, found := findScreenshot(p.Screenshots, sid)
	if !found {
		return nil, huma.Error404NotFound("screenshot not found")
	}

	remaining := make([]poi.Screenshot, 0, len(p.Screenshots)-1)
	for _, s := range p.Screenshots {
		if s.ID != sid {
			remaining = append(remaining, s)
		}
	}
	if err := h.pois.SetScreenshots(ctx, id, remaining); err != nil {
		h.logger.Error("failed to store screenshot list", "poi_id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to store screenshot list")
	}

	var paths []string
	if path, ok := blob.PathInBucket(shot.OriginalURL, blob.BucketScreenshots); ok {
		paths = append(paths, path)
	}
	if shot.URL != shot.OriginalURL {
		if path, ok := blob.PathInBucket(shot.URL, blob.BucketScreenshots); ok {
			paths = append(paths, path)
		}
	}

	out := &UploadScreenshotsOutput{Body: ScreenshotsResponse{Screenshots: remaining}}
	out.Body.Warning = h.cleanup(ctx, id, paths)
	return out, nil
}

func (h *ScreenshotHandler) cleanup(ctx context.Context, id uuid.UUID, paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	if err := h.blobs.Delete(ctx, blob.BucketScreenshots, paths); err != nil {
		h.logger.Warn("screenshot cleanup incomplete", "poi_id", id, "paths", paths, "error", err)
		return "superseded screenshot files could not be removed and will be cleaned up later"
	}
	return ""
}

// readFormFiles drains the multipart file headers, keeping upload
// order.
func readFormFiles(headers []*multipart.FileHeader) (map[string][]byte, []string, error) {
	files := make(map[string][]byte, len(headers))
	var order []string
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		files[fh.Filename] = data
		order = append(order, fh.Filename)
	}
	return files, order, nil
}

func parseCrops(values []string) (map[string]imaging.CropRect, error) {
	if len(values) == 0 || values[0] == "" {
		return nil, nil
	}
	var crops map[string]imaging.CropRect
	if err := json.Unmarshal([]byte(values[0]), &crops); err != nil {
		return nil, err
	}
	return crops, nil
}

func findScreenshot(shots []poi.Screenshot, id uuid.UUID) (poi.Screenshot, bool) {
	for _, s := range shots {
		if s.ID == id {
			return s, true
		}
	}
	return poi.Screenshot{}, false
}

func countUploads(pending []pipeline.Pending) {
	for _, p := range pending {
		metrics.ScreenshotUploads.WithLabelValues("original").Inc()
		if p.Cropped() {
			metrics.ScreenshotUploads.WithLabelValues("display").Inc()
		}
	}
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "no files accepted"
	}
	msg := reasons[0]
	for _, r := range reasons[1:] {
		msg += "; " + r
	}
	return msg
}
