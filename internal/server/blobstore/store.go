// Package blobstore stores file bytes under opaque keys. Keys use forward
// slashes ("files/2025/3/1/<uuid>", "staging/<session>/part-0") on every backend.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

// Store is the byte storage used for finished files and staged upload parts.
type Store interface {
	// Put writes r under key, replacing any previous object, and returns the
	// number of bytes persisted.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open returns a reader for key or common.ErrorNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// RemovePrefix deletes every key under prefix.
	RemovePrefix(ctx context.Context, prefix string) error
}

// StagingPrefix returns the key prefix holding the parts of an upload session.
func StagingPrefix(sessionID string) string {
	return "staging/" + sessionID + "/"
}

// PartKey returns the key of one staged part.
func PartKey(sessionID string, index int) string {
	return fmt.Sprintf("%spart-%d", StagingPrefix(sessionID), index)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != strings.TrimSuffix(key, "/") {
		return fmt.Errorf("%w: bad key %q", common.ErrorInvalidArgument, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: bad key %q", common.ErrorInvalidArgument, key)
		}
	}
	return nil
}

func ioError(op, key string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, key, common.ErrStorageIO, err)
}
