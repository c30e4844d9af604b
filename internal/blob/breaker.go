package blob

import (
	"context"

	"github.com/LinkesAuge/duneatlas/internal/circuitbreaker"
)

// BreakerStore decorates a Store with a circuit breaker so a failing
// storage backend rejects fast instead of stalling every request.
// Reads (List, PublicURL) bypass the breaker.
type BreakerStore struct {
	inner   Store
	breaker *circuitbreaker.Breaker
}

// WithBreaker wraps store.
func WithBreaker(store Store, breaker *circuitbreaker.Breaker) *BreakerStore {
	return &BreakerStore{inner: store, breaker: breaker}
}

func (s *BreakerStore) Upload(ctx context.Context, bucket, path string, data []byte) (string, error) {
	var url string
	err := s.breaker.Execute(func() error {
		var err error
		url, err = s.inner.Upload(ctx, bucket, path, data)
		return err
	})
	return url, err
}

func (s *BreakerStore) Delete(ctx context.Context, bucket string, paths []string) error {
	return s.breaker.Execute(func() error {
		return s.inner.Delete(ctx, bucket, paths)
	})
}

func (s *BreakerStore) Get(ctx context.Context, bucket, path string) ([]byte, error) {
	return s.inner.Get(ctx, bucket, path)
}

func (s *BreakerStore) List(ctx context.Context, bucket string) ([]Object, error) {
	return s.inner.List(ctx, bucket)
}

func (s *BreakerStore) PublicURL(bucket, path string) string {
	return s.inner.PublicURL(bucket, path)
}
