package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newFileCache(t *testing.T) TranscriptCache {
	t.Helper()
	cache, err := NewCache(CacheTypeFile, WithCacheDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func sampleTranscript(id, name string, records int) *CachedTranscript {
	t := &CachedTranscript{
		SessionID:   id,
		SessionName: name,
		FetchedAt:   time.Now(),
	}
	for i := 0; i < records; i++ {
		t.Records = append(t.Records,
			HistoryText(RoleUser, "question"),
			HistoryText(RoleAssistant, "answer"),
		)
	}
	return t
}

func TestNewCacheValidation(t *testing.T) {
	if _, err := NewCache(CacheTypeFile); !errors.Is(err, ErrInvalidCacheConfig) {
		t.Errorf("file cache without dir: got %v, want ErrInvalidCacheConfig", err)
	}
	if _, err := NewCache(CacheTypeRedis); !errors.Is(err, ErrInvalidCacheConfig) {
		t.Errorf("redis cache without client: got %v, want ErrInvalidCacheConfig", err)
	}
	if _, err := NewCache(CacheType("memcached")); !errors.Is(err, ErrInvalidCacheType) {
		t.Errorf("unknown backend: got %v, want ErrInvalidCacheType", err)
	}
}

func TestFileCachePutGet(t *testing.T) {
	cache := newFileCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, sampleTranscript("s-1", "Lease questions", 2)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := cache.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a cached transcript")
	}
	if got.SessionName != "Lease questions" {
		t.Errorf("SessionName = %q", got.SessionName)
	}
	if len(got.Records) != 4 {
		t.Errorf("got %d records, want 4", len(got.Records))
	}
}

func TestFileCacheGetMissing(t *testing.T) {
	cache := newFileCache(t)

	got, err := cache.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("a cache miss should return nil, nil")
	}
}

func TestFileCacheIndex(t *testing.T) {
	cache := newFileCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, sampleTranscript("s-1", "First", 1)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(ctx, sampleTranscript("s-2", "Second", 3)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// re-put updates the existing index entry in place
	if err := cache.Put(ctx, sampleTranscript("s-1", "First again", 2)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d index entries, want 2", len(entries))
	}
	if entries[0].SessionName != "First again" || entries[0].RecordCount != 4 {
		t.Errorf("index entry not updated: %+v", entries[0])
	}
}

func TestFileCacheDelete(t *testing.T) {
	cache := newFileCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, sampleTranscript("s-1", "Doomed", 1)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := cache.Get(ctx, "s-1")
	if err != nil || got != nil {
		t.Errorf("after delete: transcript=%v err=%v", got, err)
	}
	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("index still has %d entries", len(entries))
	}
}

func TestFileCacheClear(t *testing.T) {
	cache := newFileCache(t)
	ctx := context.Background()

	for _, id := range []string{"s-1", "s-2", "s-3"} {
		if err := cache.Put(ctx, sampleTranscript(id, id, 1)); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty cache, got %d entries", len(entries))
	}
}
