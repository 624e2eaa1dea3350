package cmd

import (
	"fmt"

	"github.com/arloq/docchat/internal"
	"github.com/redis/go-redis/v9"
)

// newOrchestrator assembles the orchestrator from the persistent flags.
func newOrchestrator() (*internal.Orchestrator, error) {
	if projectID == "" {
		return nil, fmt.Errorf("no project set (use --project or DOCCHAT_PROJECT)")
	}
	return internal.NewOrchestrator(internal.Config{
		API:             internal.NewAPIClient(apiURL, authToken),
		Invoker:         internal.NewHTTPAgentInvoker(apiURL, authToken),
		ProjectID:       projectID,
		ResearchRuntime: envOr("DOCCHAT_RESEARCH_RUNTIME", ""),
	}), nil
}

// newAPIClient builds the bare session API client.
func newAPIClient() (*internal.APIClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("no project set (use --project or DOCCHAT_PROJECT)")
	}
	return internal.NewAPIClient(apiURL, authToken), nil
}

// newCache builds the transcript cache selected by --cache, or nil when
// caching is off.
func newCache() (internal.TranscriptCache, error) {
	switch cacheMode {
	case "off", "none", "":
		return nil, nil
	case "file":
		dir := cacheDir
		if dir == "" {
			paths, err := internal.ResolveAppPaths()
			if err != nil {
				return nil, err
			}
			dir = paths.CacheDir
		}
		return internal.NewCache(internal.CacheTypeFile, internal.WithCacheDir(dir))
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		return internal.NewCache(internal.CacheTypeRedis, internal.WithRedisClient(client))
	default:
		return nil, fmt.Errorf("unknown cache backend %q (supported: file, redis, off)", cacheMode)
	}
}

// openArchive opens the local archive database.
func openArchive() (*internal.Archive, error) {
	paths, err := internal.ResolveAppPaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureBaseDir(); err != nil {
		return nil, err
	}
	return internal.OpenArchive(paths.ArchivePath)
}
