package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// fakeStore is an in-memory ObjectStorage for stage tests.
type fakeStore struct {
	objects    map[string][]byte
	failDelete map[string]error
	failBatch  bool
	failUpload error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:    make(map[string][]byte),
		failDelete: make(map[string]error),
	}
}

func (f *fakeStore) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if f.failUpload != nil {
		return f.failUpload
	}
	data, _ := io.ReadAll(reader)
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeStore) GetURL(key string) string {
	return "http://store.test/bucket/" + key
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if err := f.failDelete[key]; err != nil {
		return err
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) DeleteMany(ctx context.Context, keys []string) error {
	if f.failBatch {
		return errors.New("batch delete unavailable")
	}
	for _, key := range keys {
		if err := f.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) EnsureBucket(context.Context) error { return nil }

// Minimal valid PNG header, enough for content sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestPutRawKeyShape(t *testing.T) {
	store := newFakeStore()
	stage := NewStage(store, "raw", "processed")

	staged, err := stage.PutRaw(context.Background(), pngBytes, "image/png", "logo.png")
	if err != nil {
		t.Fatalf("PutRaw: %v", err)
	}

	if !strings.HasPrefix(staged.Key, "raw/") {
		t.Errorf("key %q does not start with raw/", staged.Key)
	}
	if !strings.HasSuffix(staged.Key, ".png") {
		t.Errorf("key %q does not end with .png", staged.Key)
	}
	if staged.URL != store.GetURL(staged.Key) {
		t.Errorf("URL %q does not match store URL for key", staged.URL)
	}
	if _, ok := store.objects[staged.Key]; !ok {
		t.Error("object was not uploaded under the generated key")
	}
}

func TestPutRawUniqueKeys(t *testing.T) {
	stage := NewStage(newFakeStore(), "raw", "processed")

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		staged, err := stage.PutRaw(context.Background(), pngBytes, "image/png", "a.png")
		if err != nil {
			t.Fatalf("PutRaw: %v", err)
		}
		if seen[staged.Key] {
			t.Fatalf("duplicate key generated: %s", staged.Key)
		}
		seen[staged.Key] = true
	}
}

func TestPutRawSniffsMissingContentType(t *testing.T) {
	stage := NewStage(newFakeStore(), "raw", "processed")

	staged, err := stage.PutRaw(context.Background(), pngBytes, "", "upload.bin")
	if err != nil {
		t.Fatalf("PutRaw: %v", err)
	}
	if !strings.HasSuffix(staged.Key, ".png") {
		t.Errorf("sniffed key %q does not end with .png", staged.Key)
	}
}

func TestDeleteManyBestEffort(t *testing.T) {
	store := newFakeStore()
	store.objects["raw/a.png"] = pngBytes
	store.objects["processed/b.png"] = pngBytes
	store.failBatch = true
	store.failDelete["raw/a.png"] = errors.New("access denied")

	stage := NewStage(store, "raw", "processed")

	failed := stage.DeleteMany(context.Background(), []string{"raw/a.png", "", "processed/b.png"})

	if len(failed) != 1 {
		t.Fatalf("expected 1 failed key, got %d", len(failed))
	}
	if failed[0].Key != "raw/a.png" {
		t.Errorf("failed key = %q, want raw/a.png", failed[0].Key)
	}
	// The deletable key must still have been removed.
	if _, ok := store.objects["processed/b.png"]; ok {
		t.Error("processed/b.png was not deleted despite the earlier failure")
	}
}

func TestDeleteManyEmptyKeys(t *testing.T) {
	stage := NewStage(newFakeStore(), "raw", "processed")
	if failed := stage.DeleteMany(context.Background(), []string{"", ""}); failed != nil {
		t.Errorf("expected nil for empty key set, got %v", failed)
	}
}
