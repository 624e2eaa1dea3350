package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// CacheType selects the transcript cache backend.
type CacheType string

const (
	CacheTypeFile  CacheType = "file"
	CacheTypeRedis CacheType = "redis"
)

const defaultCacheTTL = 24 * time.Hour

// CachedTranscript is one session's fetched history held locally so that
// reopening the session does not require another server round-trip. The
// raw records are cached, not the rehydrated messages; rehydration runs
// again on load.
type CachedTranscript struct {
	SessionID   string           `json:"session_id"`
	SessionName string           `json:"session_name,omitempty"`
	AgentID     string           `json:"agent_id,omitempty"`
	FetchedAt   time.Time        `json:"fetched_at"`
	Records     []HistoryMessage `json:"records"`
}

// TranscriptCache stores fetched session transcripts.
type TranscriptCache interface {
	Put(ctx context.Context, transcript *CachedTranscript) error
	Get(ctx context.Context, sessionID string) (*CachedTranscript, error)
	List(ctx context.Context) ([]CacheIndexEntry, error)
	Delete(ctx context.Context, sessionID string) error
	Clear(ctx context.Context) error
	Close() error
}

// CacheIndexEntry summarizes one cached transcript.
type CacheIndexEntry struct {
	SessionID   string    `yaml:"session_id" json:"session_id"`
	SessionName string    `yaml:"session_name,omitempty" json:"session_name,omitempty"`
	AgentID     string    `yaml:"agent_id,omitempty" json:"agent_id,omitempty"`
	FetchedAt   time.Time `yaml:"fetched_at" json:"fetched_at"`
	RecordCount int       `yaml:"record_count" json:"record_count"`
}

// CacheOption configures a transcript cache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	dir         string
	redisClient *redis.Client
	redisTTL    time.Duration
}

// WithCacheDir sets the directory for the file cache.
func WithCacheDir(dir string) CacheOption {
	return func(c *cacheConfig) { c.dir = dir }
}

// WithRedisClient sets the client for the redis cache.
func WithRedisClient(client *redis.Client) CacheOption {
	return func(c *cacheConfig) { c.redisClient = client }
}

// WithRedisTTL sets the expiry for redis cache keys.
func WithRedisTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) { c.redisTTL = ttl }
}

// NewCache creates a transcript cache of the given type. The file cache
// requires WithCacheDir; the redis cache requires WithRedisClient.
func NewCache(cacheType CacheType, opts ...CacheOption) (TranscriptCache, error) {
	cfg := &cacheConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch cacheType {
	case CacheTypeFile:
		if cfg.dir == "" {
			return nil, &ParseError{Source: "cache config", Key: "dir", Err: ErrInvalidCacheConfig}
		}
		return &fileCache{dir: cfg.dir}, nil

	case CacheTypeRedis:
		if cfg.redisClient == nil {
			return nil, &ParseError{Source: "cache config", Key: "redis client", Err: ErrInvalidCacheConfig}
		}
		ttl := cfg.redisTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		return &redisCache{client: cfg.redisClient, ttl: ttl}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCacheType, cacheType)
	}
}

// fileCache keeps one JSON file per transcript plus a YAML index.
type fileCache struct {
	dir string
}

type fileCacheIndex struct {
	Transcripts []CacheIndexEntry `yaml:"transcripts"`
	UpdatedAt   time.Time         `yaml:"updated_at"`
}

func (c *fileCache) indexPath() string {
	return filepath.Join(c.dir, "transcripts.yaml")
}

func (c *fileCache) transcriptPath(sessionID string) string {
	return filepath.Join(c.dir, fmt.Sprintf("transcript_%s.json", sessionID))
}

func (c *fileCache) loadIndex() (*fileCacheIndex, error) {
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &fileCacheIndex{}, nil
		}
		return nil, err
	}
	var index fileCacheIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache index: %w", err)
	}
	return &index, nil
}

func (c *fileCache) saveIndex(index *fileCacheIndex) error {
	index.UpdatedAt = time.Now()
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}
	return os.WriteFile(c.indexPath(), data, 0644)
}

func (c *fileCache) Put(ctx context.Context, transcript *CachedTranscript) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := os.WriteFile(c.transcriptPath(transcript.SessionID), data, 0644); err != nil {
		return err
	}

	index, err := c.loadIndex()
	if err != nil {
		index = &fileCacheIndex{}
	}
	entry := CacheIndexEntry{
		SessionID:   transcript.SessionID,
		SessionName: transcript.SessionName,
		AgentID:     transcript.AgentID,
		FetchedAt:   transcript.FetchedAt,
		RecordCount: len(transcript.Records),
	}
	found := false
	for i := range index.Transcripts {
		if index.Transcripts[i].SessionID == transcript.SessionID {
			index.Transcripts[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Transcripts = append(index.Transcripts, entry)
	}
	return c.saveIndex(index)
}

func (c *fileCache) Get(ctx context.Context, sessionID string) (*CachedTranscript, error) {
	data, err := os.ReadFile(c.transcriptPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var transcript CachedTranscript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &transcript, nil
}

func (c *fileCache) List(ctx context.Context) ([]CacheIndexEntry, error) {
	index, err := c.loadIndex()
	if err != nil {
		return nil, err
	}
	return index.Transcripts, nil
}

func (c *fileCache) Delete(ctx context.Context, sessionID string) error {
	if err := os.Remove(c.transcriptPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	index, err := c.loadIndex()
	if err != nil {
		return err
	}
	kept := index.Transcripts[:0]
	for _, entry := range index.Transcripts {
		if entry.SessionID != sessionID {
			kept = append(kept, entry)
		}
	}
	index.Transcripts = kept
	return c.saveIndex(index)
}

func (c *fileCache) Clear(ctx context.Context) error {
	index, err := c.loadIndex()
	if err == nil {
		for _, entry := range index.Transcripts {
			_ = os.Remove(c.transcriptPath(entry.SessionID))
		}
	}
	if err := os.Remove(c.indexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *fileCache) Close() error {
	return nil
}

// redisCache stores transcripts as JSON values with a rolling TTL.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

const transcriptKeyPrefix = "transcript:"

func (c *redisCache) key(sessionID string) string {
	return transcriptKeyPrefix + sessionID
}

func (c *redisCache) Put(ctx context.Context, transcript *CachedTranscript) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return c.client.Set(ctx, c.key(transcript.SessionID), data, c.ttl).Err()
}

func (c *redisCache) Get(ctx context.Context, sessionID string) (*CachedTranscript, error) {
	val, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var transcript CachedTranscript
	if err := json.Unmarshal([]byte(val), &transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	// Refresh TTL on read
	_ = c.client.Expire(ctx, c.key(sessionID), c.ttl).Err()

	return &transcript, nil
}

func (c *redisCache) List(ctx context.Context) ([]CacheIndexEntry, error) {
	var entries []CacheIndexEntry
	iter := c.client.Scan(ctx, 0, transcriptKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := c.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var transcript CachedTranscript
		if err := json.Unmarshal([]byte(val), &transcript); err != nil {
			continue
		}
		entries = append(entries, CacheIndexEntry{
			SessionID:   transcript.SessionID,
			SessionName: transcript.SessionName,
			AgentID:     transcript.AgentID,
			FetchedAt:   transcript.FetchedAt,
			RecordCount: len(transcript.Records),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *redisCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}

func (c *redisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, transcriptKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
