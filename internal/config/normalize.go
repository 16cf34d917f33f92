package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBatch()
	c.normalizeSearch()
	c.normalizeMerge()
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SummaryDir) == "" {
		c.Paths.SummaryDir = defaultSummaryDir
	}
	if c.Paths.SummaryDir, err = expandPath(c.Paths.SummaryDir); err != nil {
		return fmt.Errorf("paths.summary_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CoverCacheDir) == "" {
		c.Paths.CoverCacheDir = defaultCoverCacheDir
	}
	if c.Paths.CoverCacheDir, err = expandPath(c.Paths.CoverCacheDir); err != nil {
		return fmt.Errorf("paths.cover_cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers < MinWorkers {
		c.Batch.Workers = MinWorkers
	}
	if c.Batch.Workers > MaxWorkers {
		c.Batch.Workers = MaxWorkers
	}
	if c.Batch.MaxRetries <= 0 {
		c.Batch.MaxRetries = defaultMaxRetries
	}
	if c.Batch.AcceptThreshold <= 0 {
		c.Batch.AcceptThreshold = defaultAcceptThreshold
	}
}

func (c *Config) normalizeSearch() {
	if c.Search.MinConfidence <= 0 {
		c.Search.MinConfidence = defaultMinConfidence
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = defaultSearchLimit
	}
	if c.Search.ParallelSources <= 0 {
		c.Search.ParallelSources = defaultParallelSources
	}
	if c.Search.TimeoutSeconds <= 0 {
		c.Search.TimeoutSeconds = defaultSearchTimeout
	}
}

func (c *Config) normalizeMerge() {
	if strings.TrimSpace(c.Merge.Strategy) == "" {
		c.Merge.Strategy = defaultMergeStrategy
	}
	c.Merge.Strategy = strings.ToLower(strings.TrimSpace(c.Merge.Strategy))
	if c.Merge.MinAgreement < 2 {
		c.Merge.MinAgreement = defaultMinAgreement
	}
	if c.Merge.GroupThreshold <= 0 || c.Merge.GroupThreshold > 1 {
		c.Merge.GroupThreshold = defaultGroupThreshold
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.AlbumTTLHours <= 0 {
		c.Cache.AlbumTTLHours = defaultAlbumTTLHours
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}
