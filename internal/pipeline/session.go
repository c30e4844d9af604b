// Package pipeline drives the screenshot crop-then-upload workflow: a
// batch of validated files passes through an interactive crop step one
// file at a time, then a single submission uploads the original and
// (when cropped) display artifact of every pending entry and yields
// persisted screenshot records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/imaging"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/poi"
)

// State of a session.
type State int

const (
	Idle          State = iota // no pending files
	Queued                     // files accepted, crop step not yet entered
	Cropping                   // one file at the crop step, rest queued
	ReadyToSubmit              // every accepted file resolved to a pending entry
	Uploading                  // submission in flight
	Committed                  // all uploads succeeded, records built
	Failed                     // an upload failed, submission aborted
)

// Uploader is the slice of blob.Store the pipeline needs.
type Uploader interface {
	Upload(ctx context.Context, bucket, path string, data []byte) (string, error)
}

var (
	// ErrNotReady is returned by Submit before all crops are resolved.
	ErrNotReady = errors.New("files still awaiting crop decision")
	// ErrSubmitInFlight guards against double submission.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrNothingToCrop is returned by crop calls with an empty queue.
	ErrNothingToCrop = errors.New("no file at the crop step")
)

// LimitError rejects a file that would exceed the screenshot ceiling.
type LimitError struct {
	FileName string
	Limit    int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: screenshot limit of %d reached", e.FileName, e.Limit)
}

// UploadError names the file whose upload failed.
type UploadError struct {
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// queued is a file accepted into the session, awaiting its crop step.
type queued struct {
	name       string
	data       []byte
	existingID uuid.UUID // non-zero when re-cropping an existing screenshot
	oldURL     string    // previous display URL of that screenshot
	oldOrigURL string
}

// Pending is a file whose crop decision is made, awaiting submission.
// Display aliases Original when the crop step was skipped.
type Pending struct {
	ID          uuid.UUID
	Name        string
	Original    []byte
	Display     []byte
	CropDetails *imaging.CropRect

	// OriginalScreenshotID is set when this entry re-crops an existing
	// screenshot; its record is replaced in place on commit.
	OriginalScreenshotID uuid.UUID
	oldURL               string
	oldOrigURL           string
}

// Cropped reports whether a display artifact distinct from the
// original will be uploaded.
func (p *Pending) Cropped() bool { return p.CropDetails != nil }

// Session is the per-attachment-context state machine. It is not safe
// for concurrent use; each session belongs to one request or dialog.
type Session struct {
	state    State
	owner    uuid.UUID
	existing int
	maxBytes int64

	queue   []queued
	pending []Pending
}

// NewSession starts a session for an attachment context that already
// holds existingCount screenshots.
func NewSession(owner uuid.UUID, existingCount int, maxBytes int64) *Session {
	return &Session{
		state:    Idle,
		owner:    owner,
		existing: existingCount,
		maxBytes: maxBytes,
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Pending returns the resolved entries awaiting submission. The
// returned slice is a copy; Remove is the way to discard an entry.
func (s *Session) Pending() []Pending {
	out := make([]Pending, len(s.pending))
	copy(out, s.pending)
	return out
}

// Accept validates one file and queues it for the crop step. A
// rejected file does not affect its siblings.
func (s *Session) Accept(name string, data []byte) error {
	if s.state == Uploading || s.state == Committed {
		return fmt.Errorf("%s: session already %s", name, s.state)
	}
	if s.existing+len(s.queue)+len(s.pending) >= poi.MaxScreenshots {
		return &LimitError{FileName: name, Limit: poi.MaxScreenshots}
	}
	if err := imaging.ValidateUpload(name, data, s.maxBytes); err != nil {
		return err
	}
	s.queue = append(s.queue, queued{name: name, data: data})
	if s.state != Cropping {
		s.state = Queued
	}
	return nil
}

// AcceptBatch queues every valid file and returns one error per
// rejected file. Partial acceptance, not all-or-nothing.
func (s *Session) AcceptBatch(files map[string][]byte, order []string) []error {
	var rejected []error
	for _, name := range order {
		if err := s.Accept(name, files[name]); err != nil {
			rejected = append(rejected, err)
		}
	}
	return rejected
}

// BeginRecrop queues the source bytes of an existing screenshot so a
// new crop can replace its record in place.
func (s *Session) BeginRecrop(shot poi.Screenshot, source []byte) error {
	if s.state == Uploading || s.state == Committed {
		return fmt.Errorf("session already %s", s.state)
	}
	s.queue = append(s.queue, queued{
		name:       shot.ID.String(),
		data:       source,
		existingID: shot.ID,
		oldURL:     shot.URL,
		oldOrigURL: shot.OriginalURL,
	})
	if s.state != Cropping {
		s.state = Queued
	}
	return nil
}

// Current presents the next file to the crop tool, if any, and enters
// the Cropping state.
func (s *Session) Current() (name string, data []byte, ok bool) {
	if len(s.queue) == 0 {
		return "", nil, false
	}
	s.state = Cropping
	return s.queue[0].name, s.queue[0].data, true
}

// ConfirmCrop resolves the current file with the given rectangle. A
// rectangle covering the full image degrades to a skip: no separate
// display artifact is produced.
func (s *Session) ConfirmCrop(rect imaging.CropRect) error {
	if len(s.queue) == 0 {
		return ErrNothingToCrop
	}
	q := s.queue[0]

	w, h, err := imaging.Dimensions(q.data)
	if err != nil {
		return fmt.Errorf("%s: %w", q.name, err)
	}
	r := rect
	if !(&r).Meaningful(w, h) {
		return s.SkipCrop()
	}

	display, err := imaging.Convert(q.data, &r, imaging.PresetStandard)
	if err != nil {
		return fmt.Errorf("%s: %w", q.name, err)
	}
	metrics.ConvertedBytes.Add(float64(len(display.Data)))

	s.append(Pending{
		ID:                   uuid.New(),
		Name:                 q.name,
		Original:             q.data,
		Display:              display.Data,
		CropDetails:          &r,
		OriginalScreenshotID: q.existingID,
		oldURL:               q.oldURL,
		oldOrigURL:           q.oldOrigURL,
	})
	return nil
}

// SkipCrop resolves the current file without cropping: the display
// artifact is the original.
func (s *Session) SkipCrop() error {
	if len(s.queue) == 0 {
		return ErrNothingToCrop
	}
	q := s.queue[0]
	s.append(Pending{
		ID:                   uuid.New(),
		Name:                 q.name,
		Original:             q.data,
		Display:              q.data,
		OriginalScreenshotID: q.existingID,
		oldURL:               q.oldURL,
		oldOrigURL:           q.oldOrigURL,
	})
	return nil
}

// append records a resolved entry and advances the queue.
func (s *Session) append(p Pending) {
	s.pending = append(s.pending, p)
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.state = ReadyToSubmit
	} else {
		s.state = Cropping
	}
}

// Remove drops a pending entry before submission.
func (s *Session) Remove(id uuid.UUID) bool {
	if s.state == Uploading || s.state == Committed {
		return false
	}
	for i, p := range s.pending {
		if p.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			if len(s.pending) == 0 && len(s.queue) == 0 {
				s.state = Idle
			}
			return true
		}
	}
	return false
}

// Cancel discards the whole session; no partial commits happen.
func (s *Session) Cancel() {
	s.queue = nil
	s.pending = nil
	s.state = Idle
}

// Result is the outcome of a successful submission.
type Result struct {
	// Screenshots is the owning entity's new screenshot list: existing
	// records with re-crops replaced in place, new records appended.
	Screenshots []poi.Screenshot

	// Cleanup holds in-bucket paths of superseded display artifacts.
	// They must be deleted only after the owning entity update
	// succeeds, never before.
	Cleanup []string
}

// Submit uploads every pending entry and builds the merged screenshot
// list. Per file, the original artifact uploads first; the display
// artifact uploads separately only when a meaningful crop was applied,
// otherwise the display URL aliases the original upload. The first
// failure aborts the remainder and leaves the session Failed; earlier
// uploads stay unreferenced in storage for the sweeper to reclaim.
func (s *Session) Submit(ctx context.Context, up Uploader, existing []poi.Screenshot) (*Result, error) {
	switch s.state {
	case Uploading:
		return nil, ErrSubmitInFlight
	case Queued, Cropping:
		return nil, ErrNotReady
	case ReadyToSubmit:
	default:
		return nil, fmt.Errorf("nothing to submit in state %s", s.state)
	}
	s.state = Uploading

	now := time.Now().UTC()
	merged := make([]poi.Screenshot, len(existing))
	copy(merged, existing)
	var cleanup []string

	for _, p := range s.pending {
		original, err := imaging.Convert(p.Original, nil, imaging.PresetHigh)
		if err != nil {
			s.state = Failed
			return nil, &UploadError{FileName: p.Name, Err: err}
		}
		metrics.ConvertedBytes.Add(float64(len(original.Data)))

		name := imaging.WebPName(p.ID.String())
		origURL, err := up.Upload(ctx, blob.BucketScreenshots, blob.ObjectPath(blob.FolderOriginals, name), original.Data)
		if err != nil {
			s.state = Failed
			return nil, &UploadError{FileName: p.Name, Err: err}
		}

		displayURL := origURL
		if p.Cropped() {
			displayURL, err = up.Upload(ctx, blob.BucketScreenshots, blob.ObjectPath(blob.FolderCropped, name), p.Display)
			if err != nil {
				s.state = Failed
				return nil, &UploadError{FileName: p.Name, Err: err}
			}
		}

		shot := poi.Screenshot{
			ID:          p.ID,
			URL:         displayURL,
			OriginalURL: origURL,
			CropDetails: p.CropDetails,
			UploadedBy:  s.owner,
			UploadDate:  now,
		}

		if p.OriginalScreenshotID != uuid.Nil {
			shot.ID = p.OriginalScreenshotID
			replaced := false
			for i := range merged {
				if merged[i].ID == p.OriginalScreenshotID {
					merged[i] = shot
					replaced = true
					break
				}
			}
			if !replaced {
				merged = append(merged, shot)
			}
			// The superseded display artifact goes once the entity
			// update lands. The original is the source of truth and is
			// never deleted here.
			if p.oldURL != "" && p.oldURL != p.oldOrigURL {
				if path, ok := blob.PathInBucket(p.oldURL, blob.BucketScreenshots); ok {
					cleanup = append(cleanup, path)
				}
			}
		} else {
			merged = append(merged, shot)
		}
	}

	s.state = Committed
	return &Result{Screenshots: merged, Cleanup: cleanup}, nil
}

// String renders a state for error messages.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case Cropping:
		return "cropping"
	case ReadyToSubmit:
		return "ready"
	case Uploading:
		return "uploading"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	}
	return "unknown"
}
