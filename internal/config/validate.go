package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers < MinWorkers || c.Batch.Workers > MaxWorkers {
		return fmt.Errorf("batch.workers must be between %d and %d", MinWorkers, MaxWorkers)
	}
	if c.Batch.AcceptThreshold < 0 || c.Batch.AcceptThreshold > 1 {
		return errors.New("batch.accept_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.MinConfidence < 0 || c.Search.MinConfidence > 100 {
		return errors.New("search.min_confidence must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateMerge() error {
	switch c.Merge.Strategy {
	case "best_confidence", "priority", "consensus":
	default:
		return fmt.Errorf("merge.strategy: unsupported value %q", c.Merge.Strategy)
	}
	if c.Merge.GroupThreshold < 0 || c.Merge.GroupThreshold > 1 {
		return errors.New("merge.group_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
