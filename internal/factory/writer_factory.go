package factory

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/model"
	"fmt"
	"log"
	"sort"
	"sync"
)

// WriterFactory creates a dataset writer from its config entry.
type WriterFactory func(def config.WriterDef) (model.Writer, error)

var (
	mu sync.RWMutex
	// registry holds the mapping of writer types to their factory functions.
	registry = make(map[string]WriterFactory)
)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Types returns the registered writer types in sorted order.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateWriters builds every enabled writer listed in the config.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		log.Printf("Creating dataset writer of type: '%s'\n", def.Type)

		mu.RLock()
		factory, ok := registry[def.Type]
		mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		writer, err := factory(def)
		if err != nil {
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		writers = append(writers, writer)
	}

	return writers, nil
}
