package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// WriteFileFunc streams rows in one file format to w.
type WriteFileFunc func(ctx context.Context, w io.Writer, rows []Evaluation) error

// WriteDBFunc loads rows into a database table.
type WriteDBFunc func(ctx context.Context, db DB, target Target, rows []Evaluation) error

// FormatDefinition describes one output format. Exactly one of WriteFile and
// WriteDB is set.
type FormatDefinition struct {
	Key       string // Config value: "csv", "parquet"
	Label     string // Display name
	Extension string // File extension including the dot; empty for database formats
	WriteFile WriteFileFunc
	WriteDB   WriteDBFunc
}

var (
	registry   = make(map[string]FormatDefinition)
	registryMu sync.RWMutex
)

// Register adds a format definition to the registry.
// Panics if a format with the same key is already registered, or if the
// definition does not set exactly one writer.
func Register(def FormatDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("format already registered: %s", def.Key))
	}
	if (def.WriteFile == nil) == (def.WriteDB == nil) {
		panic(fmt.Sprintf("format %s must set exactly one of WriteFile and WriteDB", def.Key))
	}

	registry[def.Key] = def
}

// Get returns a format definition by key.
// Returns false if not found.
func Get(key string) (FormatDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered formats, sorted by key.
func All() []FormatDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FormatDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Keys returns the registered format keys, sorted.
func Keys() []string {
	defs := All()
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = def.Key
	}
	return keys
}

// FormatCount returns the number of registered formats.
func FormatCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered formats.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]FormatDefinition)
}
