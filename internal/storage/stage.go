package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// StagedObject describes one payload bound into object storage.
type StagedObject struct {
	URL string
	Key string
}

// KeyError pairs a storage key with the error its deletion produced.
type KeyError struct {
	Key string
	Err error
}

func (e KeyError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Key, e.Err)
}

func (e KeyError) Unwrap() error {
	return e.Err
}

// Stage binds job payloads to object storage under a raw prefix for sources
// and an output prefix for worker results. It owns key generation and
// upload/delete of those objects; it knows nothing about job records.
type Stage struct {
	store        ObjectStorage
	rawPrefix    string
	outputPrefix string
}

// NewStage creates a Stage over the given store.
// Parameters:
//   - store: object storage backend.
//   - rawPrefix: key namespace for uploaded sources (e.g. "raw").
//   - outputPrefix: key namespace for processed results.
// Returns:
//   - *Stage: initialized stage.
func NewStage(store ObjectStorage, rawPrefix, outputPrefix string) *Stage {
	return &Stage{
		store:        store,
		rawPrefix:    strings.Trim(rawPrefix, "/"),
		outputPrefix: strings.Trim(outputPrefix, "/"),
	}
}

// RawPrefix returns the key namespace for uploaded sources.
func (s *Stage) RawPrefix() string {
	return s.rawPrefix
}

// OutputPrefix returns the key namespace for processed results.
// Workers choose their own key under this prefix.
func (s *Stage) OutputPrefix() string {
	return s.outputPrefix
}

// PutRaw uploads a source payload under the raw prefix and returns its
// location. The key is collision-resistant: millisecond timestamp, a random
// suffix, and an extension inferred from the content type or filename.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - data: payload bytes.
//   - contentType: MIME type of the payload; sniffed from data when empty.
//   - filename: original filename, used as an extension fallback.
// Returns:
//   - StagedObject: URL and key of the stored object.
//   - error: non-nil if the upload fails.
func (s *Stage) PutRaw(ctx context.Context, data []byte, contentType, filename string) (StagedObject, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	key := s.rawPrefix + "/" + newObjectName(data, contentType, filename)
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return StagedObject{}, fmt.Errorf("stage raw object: %w", err)
	}

	return StagedObject{
		URL: s.store.GetURL(key),
		Key: key,
	}, nil
}

// DeleteMany removes the given keys best-effort: a batch delete first, then
// per-key deletes for anything the batch could not confirm. Failures are
// collected and returned, never raised as a single aborting error, so the
// caller can finish its own cleanup and decide whether to alert.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - keys: storage keys to remove; empty entries are skipped.
// Returns:
//   - []KeyError: one entry per key that could not be deleted; nil when all
//     deletions succeeded.
func (s *Stage) DeleteMany(ctx context.Context, keys []string) []KeyError {
	targets := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			targets = append(targets, key)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	if err := s.store.DeleteMany(ctx, targets); err == nil {
		return nil
	}

	// Batch failed; retry each key individually so one bad key cannot block
	// the rest.
	var failed []KeyError
	for _, key := range targets {
		if err := s.store.Delete(ctx, key); err != nil {
			failed = append(failed, KeyError{Key: key, Err: err})
		}
	}
	return failed
}

// newObjectName builds "<ms-timestamp>-<rand><ext>".
func newObjectName(data []byte, contentType, filename string) string {
	suffix := make([]byte, 4)
	rand.Read(suffix)

	return strconv.FormatInt(time.Now().UnixMilli(), 10) +
		"-" + hex.EncodeToString(suffix) +
		inferExtension(data, contentType, filename)
}

// inferExtension picks a file extension from the content type, falling back
// to the original filename's extension.
func inferExtension(data []byte, contentType, filename string) string {
	if contentType != "" {
		if mt := mimetype.Lookup(contentType); mt != nil && mt.Extension() != "" {
			return mt.Extension()
		}
	}
	if ext := filepath.Ext(filename); ext != "" {
		return strings.ToLower(ext)
	}
	return mimetype.Detect(data).Extension()
}
