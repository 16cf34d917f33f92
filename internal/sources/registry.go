package sources

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"bdresolve/internal/config"
)

// Factory builds a Source from its configuration entry. The client is
// shared across every source built for one run and already carries the
// configured request timeout.
type Factory func(name string, cfg config.SourceConfig, client *Client, logger *slog.Logger) (Source, error)

var (
	registryMu sync.Mutex
	registry   = make(map[string]Factory)
)

// Register makes a source factory available under name. The host
// application registers its sources at startup; there is no runtime
// discovery. Registering the same name twice panics, matching the
// database/sql driver convention.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("sources: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("sources: Register called twice for source " + name)
	}
	registry[name] = factory
}

// Registered returns the sorted names of all registered factories.
func Registered() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates every enabled, registered source from config, in
// deterministic name order. Sources enabled in config but not registered
// are an error: a typo in config should not silently drop a source.
func Build(cfg *config.Config, logger *slog.Logger) ([]Source, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	client := NewClient(WithTimeout(time.Duration(cfg.Search.TimeoutSeconds) * time.Second))

	var built []Source
	for _, name := range names {
		entry := cfg.Sources[name]
		if !entry.Enabled {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("source %q enabled in config but not registered", name)
		}
		src, err := factory(name, entry, client, logger)
		if err != nil {
			return nil, fmt.Errorf("build source %q: %w", name, err)
		}
		built = append(built, src)
	}
	return built, nil
}
