// Package sweeper reclaims blobs the database no longer references.
// Aborted upload batches leave committed artifacts behind; instead of
// compensating deletes on every failure path, a background poller
// reconciles storage against the database.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// Checkpoint persists the time of the last completed sweep so restarts
// are observable and sweeps can be monitored for staleness.
type Checkpoint interface {
	Load(ctx context.Context) (time.Time, error)
	Save(ctx context.Context, sweptAt time.Time, deleted int) error
}

// Sweeper polls blob storage and deletes unreferenced objects older
// than a grace period. The grace period covers uploads whose database
// commit has not happened yet.
type Sweeper struct {
	refs       storage.Referencer
	blobs      blob.Store
	checkpoint Checkpoint
	buckets    []string
	interval   time.Duration
	grace      time.Duration
	batchSize  int
	logger     *slog.Logger
}

func New(
	refs storage.Referencer,
	blobs blob.Store,
	checkpoint Checkpoint,
	buckets []string,
	interval, grace time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		refs:       refs,
		blobs:      blobs,
		checkpoint: checkpoint,
		buckets:    buckets,
		interval:   interval,
		grace:      grace,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	last, err := s.checkpoint.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load sweep checkpoint", "error", err)
	} else if !last.IsZero() {
		s.logger.Info("sweeper started", "last_sweep", last)
	} else {
		s.logger.Info("sweeper started, no previous sweep")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Info("sweep reclaimed orphans", "deleted", deleted)
			}
			if err := s.checkpoint.Save(ctx, time.Now().UTC(), deleted); err != nil {
				s.logger.Error("failed to save sweep checkpoint", "error", err)
			}
		}
	}
}

// SweepOnce reconciles every bucket once and returns how many blobs it
// deleted. The referenced set is loaded before listing so an object
// committed mid-sweep is either in the set or younger than the grace
// period.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	urls, err := s.refs.ReferencedImageURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load references: %w", err)
	}
	referenced := make(map[string]bool, len(urls))
	for _, u := range urls {
		referenced[u] = true
	}

	cutoff := time.Now().Add(-s.grace)

	orphans := make(map[string][]string)
	total := 0
	for _, bucket := range s.buckets {
		objects, err := s.blobs.List(ctx, bucket)
		if err != nil {
			return 0, fmt.Errorf("list %s: %w", bucket, err)
		}
		for _, obj := range objects {
			if s.batchSize > 0 && total >= s.batchSize {
				break
			}
			if obj.ModTime.After(cutoff) {
				continue
			}
			if referenced[s.blobs.PublicURL(bucket, obj.Path)] {
				continue
			}
			orphans[bucket] = append(orphans[bucket], obj.Path)
			total++
		}
	}
	if total == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for bucket, paths := range orphans {
		g.Go(func() error {
			if err := s.blobs.Delete(gctx, bucket, paths); err != nil {
				return fmt.Errorf("delete orphans in %s: %w", bucket, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	metrics.SweepDeletions.Add(float64(total))
	return total, nil
}
