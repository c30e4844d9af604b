// Package blob stores image artifacts and serves them by public URL.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownBucket is returned for buckets not present in the registry.
var ErrUnknownBucket = errors.New("unknown bucket")

// ErrNotFound is returned by Get for a missing object.
var ErrNotFound = errors.New("object not found")

// Object describes one stored blob.
type Object struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store is the object storage contract. Paths are slash-separated and
// relative to the bucket root.
type Store interface {
	// Upload writes data and returns the public URL of the object.
	// Uploads overwrite silently; paths carry unique IDs upstream.
	Upload(ctx context.Context, bucket, path string, data []byte) (string, error)

	// Get reads an object's bytes.
	Get(ctx context.Context, bucket, path string) ([]byte, error)

	// Delete removes the given objects. Missing objects are not an error.
	Delete(ctx context.Context, bucket string, paths []string) error

	// List enumerates all objects in a bucket.
	List(ctx context.Context, bucket string) ([]Object, error)

	// PublicURL returns the URL an object would be served from.
	PublicURL(bucket, path string) string
}

// Buckets used by the upload pipeline. Originals and display variants
// live in separate folders so a re-crop can replace the display
// artifact without touching the source of truth.
const (
	BucketScreenshots = "screenshots"
	BucketMaps        = "maps"
	BucketIcons       = "icons"

	FolderOriginals = "poi_screenshots"
	FolderCropped   = "poi_cropped"
	FolderGrid      = "grid_screenshots"
)

// ObjectPath joins a folder and file name.
func ObjectPath(folder, name string) string {
	if folder == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", folder, name)
}

// PathInBucket extracts the in-bucket object path from a public URL by
// locating the bucket segment. Returns ok=false for foreign URLs.
func PathInBucket(url, bucket string) (string, bool) {
	marker := "/" + bucket + "/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", false
	}
	return url[i+len(marker):], true
}
