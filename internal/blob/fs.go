package blob

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore keeps blobs on the local filesystem under root/<bucket>/...
// and serves them from publicBase (the service's /files route).
type FSStore struct {
	root       string
	publicBase string
	buckets    map[string]bool
}

// NewFSStore creates the bucket directories under root. publicBase is
// the externally reachable prefix, e.g. "https://host/files".
func NewFSStore(root, publicBase string, buckets []string) (*FSStore, error) {
	known := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
		known[b] = true
	}
	return &FSStore{
		root:       root,
		publicBase: strings.TrimRight(publicBase, "/"),
		buckets:    known,
	}, nil
}

// cleanPath rejects traversal outside the bucket.
func cleanPath(p string) (string, error) {
	cp := path.Clean("/" + p)
	if cp == "/" {
		return "", fmt.Errorf("empty object path")
	}
	return cp[1:], nil
}

func (s *FSStore) Upload(ctx context.Context, bucket, objPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.buckets[bucket] {
		return "", fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	cp, err := cleanPath(objPath)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, bucket, filepath.FromSlash(cp))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, cp, err)
	}

	// Write-then-rename so readers never see a partial object.
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, cp, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("upload %s/%s: %w", bucket, cp, err)
	}

	return s.PublicURL(bucket, cp), nil
}

func (s *FSStore) Get(ctx context.Context, bucket, objPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.buckets[bucket] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	cp, err := cleanPath(objPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, bucket, filepath.FromSlash(cp)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, cp)
		}
		return nil, fmt.Errorf("get %s/%s: %w", bucket, cp, err)
	}
	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, bucket string, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.buckets[bucket] {
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	for _, p := range paths {
		cp, err := cleanPath(p)
		if err != nil {
			return err
		}
		full := filepath.Join(s.root, bucket, filepath.FromSlash(cp))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s/%s: %w", bucket, cp, err)
		}
	}
	return nil
}

func (s *FSStore) List(ctx context.Context, bucket string) ([]Object, error) {
	if !s.buckets[bucket] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	base := filepath.Join(s.root, bucket)

	var objects []Object
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	return objects, nil
}

func (s *FSStore) PublicURL(bucket, objPath string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, bucket, objPath)
}

// Root returns the filesystem directory backing the store, for
// mounting a static file handler.
func (s *FSStore) Root() string { return s.root }
