package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"bdresolve/internal/config"
	"bdresolve/internal/logging"
	"bdresolve/internal/merge"
	"bdresolve/internal/resolve"
	"bdresolve/internal/sources"
	"bdresolve/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, logErr := logging.NewFromConfig(cfg)
		if logErr != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger, nil
}

// openStore connects to the database. When required is false a failure
// degrades to a nil store instead of aborting the command.
func (c *commandContext) openStore(required bool) (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		if required {
			return nil, err
		}
		if logger, logErr := c.ensureLogger(); logErr == nil {
			logger.Warn("database unavailable; continuing without persistence", logging.Error(err))
		}
		return nil, nil
	}
	return st, nil
}

// buildResolver assembles the pipeline from config: registered sources,
// the cache source when a store is available, the coordinator, and the
// merger.
func (c *commandContext) buildResolver(st *store.Store, opts resolve.Options) (*resolve.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	srcs, err := sources.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	if st != nil {
		srcs = append(srcs, store.NewCacheSource(st))
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no sources enabled; check the [sources] section of the config")
	}

	coordinator := sources.NewCoordinator(logger, srcs,
		sources.WithMaxParallel(cfg.Search.ParallelSources))

	strategy, err := merge.ParseStrategy(cfg.Merge.Strategy)
	if err != nil {
		return nil, err
	}
	merger := merge.NewMerger(logger, strategy,
		merge.WithPriorities(coordinator.PriorityMap()),
		merge.WithMinAgreement(cfg.Merge.MinAgreement))

	ropts := []resolve.ResolverOption{}
	if st != nil {
		ropts = append(ropts, resolve.WithAlbumCacher(st))
	}
	return resolve.New(logger, coordinator, merger, opts, ropts...), nil
}

// acquireLock takes the per-database run lock so two batch runs cannot
// interleave session writes.
func (c *commandContext) acquireLock() (*flock.Flock, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	lock := flock.New(cfg.Paths.DatabasePath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another bdresolve run is already using %s", cfg.Paths.DatabasePath)
	}
	return lock, nil
}
