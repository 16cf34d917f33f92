package config

const (
	defaultDatabasePath    = "~/.local/share/bdresolve/bdresolve.db"
	defaultLogDir          = "~/.local/share/bdresolve/logs"
	defaultSummaryDir      = "~/.local/share/bdresolve/runs"
	defaultCoverCacheDir   = "~/.local/share/bdresolve/covers"
	defaultWorkers         = 4
	defaultMaxRetries      = 3
	defaultAcceptThreshold = 0.70
	defaultMinConfidence   = 50.0
	defaultSearchLimit     = 10
	defaultParallelSources = 5
	defaultSearchTimeout   = 30
	defaultMergeStrategy   = "best_confidence"
	defaultMinAgreement    = 2
	defaultGroupThreshold  = 0.8
	defaultAlbumTTLHours   = 24
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"

	// MinWorkers and MaxWorkers bound the batch worker pool.
	MinWorkers = 1
	MaxWorkers = 8
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DatabasePath:  defaultDatabasePath,
			LogDir:        defaultLogDir,
			SummaryDir:    defaultSummaryDir,
			CoverCacheDir: defaultCoverCacheDir,
		},
		Batch: Batch{
			Workers:         defaultWorkers,
			BatchMode:       true,
			StrictMode:      false,
			SkipProcessed:   true,
			MaxRetries:      defaultMaxRetries,
			AcceptThreshold: defaultAcceptThreshold,
		},
		Search: Search{
			MinConfidence:   defaultMinConfidence,
			Limit:           defaultSearchLimit,
			ParallelSources: defaultParallelSources,
			TimeoutSeconds:  defaultSearchTimeout,
		},
		Merge: Merge{
			Strategy:       defaultMergeStrategy,
			MinAgreement:   defaultMinAgreement,
			GroupThreshold: defaultGroupThreshold,
		},
		Cache: Cache{
			AlbumTTLHours: defaultAlbumTTLHours,
		},
		Sources: map[string]SourceConfig{},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
