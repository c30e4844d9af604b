package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/imaging"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// --- Huma Input/Output types ---

type ListGridOutput struct {
	Body struct {
		Squares []poi.GridSquare `json:"squares" doc:"All 81 deep desert squares, A1 through I9"`
	}
}

type GetGridSquareInput struct {
	Coordinate string `path:"coordinate" doc:"Grid coordinate, A1-I9"`
}

type GridSquareOutput struct {
	Body poi.GridSquare
}

type UploadGridScreenshotInput struct {
	UserID     string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	Coordinate string `path:"coordinate" doc:"Grid coordinate, A1-I9"`
	RawBody    multipart.Form
}

type GridScreenshotResponse struct {
	Square  poi.GridSquare `json:"square" doc:"The square after the upload"`
	Warning string         `json:"warning,omitempty" doc:"Set when displaced artifact cleanup failed"`
}

type UploadGridScreenshotOutput struct {
	Body GridScreenshotResponse
}

type SetExploredInput struct {
	UserID     string `header:"X-User-ID" doc:"Acting user UUID" required:"true"`
	Coordinate string `path:"coordinate" doc:"Grid coordinate, A1-I9"`
	Body       struct {
		IsExplored bool `json:"is_explored" doc:"New exploration flag"`
	}
}

// --- Handler ---

type GridHandler struct {
	grid     storage.GridStore
	blobs    blob.Store
	maxBytes int64
	logger   *slog.Logger
}

func NewGridHandler(grid storage.GridStore, blobs blob.Store, maxBytes int64, logger *slog.Logger) *GridHandler {
	return &GridHandler{grid: grid, blobs: blobs, maxBytes: maxBytes, logger: logger}
}

func registerGridRoutes(api huma.API, h *GridHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-grid-squares",
		Method:      http.MethodGet,
		Path:        "/v1/grid",
		Summary:     "List all deep desert grid squares",
		Tags:        []string{"grid"},
	}, h.ListSquares)

	huma.Register(api, huma.Operation{
		OperationID: "get-grid-square",
		Method:      http.MethodGet,
		Path:        "/v1/grid/{coordinate}",
		Summary:     "Get one grid square",
		Tags:        []string{"grid"},
	}, h.GetSquare)

	huma.Register(api, huma.Operation{
		OperationID:   "upload-grid-screenshot",
		Method:        http.MethodPost,
		Path:          "/v1/grid/{coordinate}/screenshot",
		Summary:       "Attach an exploration screenshot to a grid square",
		Tags:          []string{"grid"},
		DefaultStatus: http.StatusCreated,
	}, h.UploadScreenshot)

	huma.Register(api, huma.Operation{
		OperationID: "set-grid-explored",
		Method:      http.MethodPut,
		Path:        "/v1/grid/{coordinate}/explored",
		Summary:     "Mark a grid square explored or unexplored",
		Tags:        []string{"grid"},
	}, h.SetExplored)
}

func (h *GridHandler) ListSquares(ctx context.Context, _ *struct{}) (*ListGridOutput, error) {
	squares, err := h.grid.ListGridSquares(ctx)
	if err != nil {
		h.logger.Error("failed to list grid squares", "error", err)
		return nil, huma.Error500InternalServerError("failed to list grid squares")
	}
	out := &ListGridOutput{}
	out.Body.Squares = squares
	return out, nil
}

func (h *GridHandler) GetSquare(ctx context.Context, input *GetGridSquareInput) (*GridSquareOutput, error) {
	sq, err := h.grid.GetGridSquare(ctx, input.Coordinate)
	if err != nil {
		if errors.Is(err, storage.ErrSquareNotFound) {
			return nil, huma.Error404NotFound("grid square not found")
		}
		h.logger.Error("failed to get grid square", "coordinate", input.Coordinate, "error", err)
		return nil, huma.Error500InternalServerError("failed to get grid square")
	}
	return &GridSquareOutput{Body: *sq}, nil
}

// UploadScreenshot stores a single exploration screenshot under the
// "file" field, with an optional "crop" field holding a JSON crop
// rectangle. Uploading marks the square explored; a previous
// screenshot's artifact is removed once the new record is persisted.
func (h *GridHandler) UploadScreenshot(ctx context.Context, input *UploadGridScreenshotInput) (*UploadGridScreenshotOutput, error) {
	user, err := parseUserID(input.UserID)
	if err != nil {
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

	if err := imaging.ValidateUpload(headers[0].Filename, data, h.maxBytes); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	var rect *imaging.CropRect
	if vals := input.RawBody.Value["crop"]; len(vals) > 0 && vals[0] != "" {
		var r imaging.CropRect
		if err := json.Unmarshal([]byte(vals[0]), &r); err != nil {
			return nil, huma.Error400BadRequest("crop must be a JSON rectangle")
		}
		w, ht, err := imaging.Dimensions(data)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if (&r).Meaningful(w, ht) {
			rect = &r
		}
	}

	original, err := imaging.Convert(data, nil, imaging.PresetHigh)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	metrics.ConvertedBytes.Add(float64(len(original.Data)))

	shotID := uuid.New()
	origPath := blob.ObjectPath(blob.FolderGrid, imaging.WebPName(shotID.String()))
	origURL, err := h.blobs.Upload(ctx, blob.BucketScreenshots, origPath, original.Data)
	if err != nil {
		h.logger.Error("grid screenshot upload failed", "coordinate", input.Coordinate, "error", err)
		return nil, huma.Error500InternalServerError("screenshot upload failed")
	}
	metrics.ScreenshotUploads.WithLabelValues("grid").Inc()

	// The display artifact is separate only when a crop was applied, so
	// the untouched source stays available for a later re-crop.
	displayURL := origURL
	if rect != nil {
		display, err := imaging.Convert(data, rect, imaging.PresetHigh)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		metrics.ConvertedBytes.Add(float64(len(display.Data)))

		displayPath := blob.ObjectPath(blob.FolderGrid, imaging.WebPName(shotID.String()+"_display"))
		displayURL, err = h.blobs.Upload(ctx, blob.BucketScreenshots, displayPath, display.Data)
		if err != nil {
			h.logger.Error("grid screenshot upload failed", "coordinate", input.Coordinate, "error", err)
			return nil, huma.Error500InternalServerError("screenshot upload failed")
		}
		metrics.ScreenshotUploads.WithLabelValues("grid").Inc()
	}

	shot := poi.Screenshot{
		ID:          shotID,
		URL:         displayURL,
		OriginalURL: origURL,
		CropDetails: rect,
		UploadedBy:  user,
		UploadDate:  time.Now().UTC(),
	}
	displaced, err := h.grid.PutGridScreenshot(ctx, input.Coordinate, shot)
	if err != nil {
		if errors.Is(err, storage.ErrSquareNotFound) {
			return nil, huma.Error404NotFound("grid square not found")
		}
		h.logger.Error("failed to store grid screenshot", "coordinate", input.Coordinate, "error", err)
		return nil, huma.Error500InternalServerError("failed to store grid screenshot")
	}

	out := &UploadGridScreenshotOutput{}
	out.Body.Square = poi.GridSquare{Coordinate: input.Coordinate, Screenshot: &shot, IsExplored: true}

	if displaced != nil {
		var paths []string
		if p, ok := blob.PathInBucket(displaced.URL, blob.BucketScreenshots); ok {
			paths = append(paths, p)
		}
		if displaced.OriginalURL != displaced.URL {
			if p, ok := blob.PathInBucket(displaced.OriginalURL, blob.BucketScreenshots); ok {
				paths = append(paths, p)
			}
		}
		if len(paths) > 0 {
			if err := h.blobs.Delete(ctx, blob.BucketScreenshots, paths); err != nil {
				h.logger.Warn("displaced grid screenshot cleanup incomplete", "coordinate", input.Coordinate, "error", err)
				out.Body.Warning = "the replaced screenshot file could not be removed and will be cleaned up later"
			}
		}
	}
	return out, nil
}

func (h *GridHandler) SetExplored(ctx context.Context, input *SetExploredInput) (*GridSquareOutput, error) {
	if _, err := parseUserID(input.UserID); err != nil {
		return nil, huma.Error400BadRequest("invalid X-User-ID")
	}

	if err := h.grid.SetExplored(ctx, input.Coordinate, input.Body.IsExplored); err != nil {
		if errors.Is(err, storage.ErrSquareNotFound) {
			return nil, huma.Error404NotFound("grid square not found")
		}
		h.logger.Error("failed to set explored flag", "coordinate", input.Coordinate, "error", err)
		return nil, huma.Error500InternalServerError("failed to set explored flag")
	}

	sq, err := h.grid.GetGridSquare(ctx, input.Coordinate)
	if err != nil {
		h.logger.Error("failed to reload grid square", "coordinate", input.Coordinate, "error", err)
		return nil, huma.Error500InternalServerError("failed to reload grid square")
	}
	return &GridSquareOutput{Body: *sq}, nil
}
