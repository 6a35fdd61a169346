package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/adocstore/internal/config"
)

// Store holds exported objects under flat keys.
type Store interface {
	Type() string
	Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ReadSeekCloser is rewound before every upload, so callers may retry Save
// with the same reader.
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

type Factory func(args interface{}) (Store, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

func storeType(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func Register(name string, factory Factory) {
	typ := storeType(name)
	if typ == "" || factory == nil {
		return
	}
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[typ] = factory
}

// Types lists the registered store types in sorted order.
func Types() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for typ := range factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// New builds the store named by cfg.Type from its free-form data block.
func New(cfg config.FileStoreConfig) (Store, error) {
	typ := storeType(cfg.Type)
	if typ == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	factoriesMu.RLock()
	factory, ok := factories[typ]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file_store.type %q unknown, want one of %s", cfg.Type, strings.Join(Types(), ", "))
	}
	store, err := factory(cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("init %s file store: %w", typ, err)
	}
	return store, nil
}

// decodeConfig maps the untyped file_store.data block onto T.
func decodeConfig[T any](args interface{}) (*T, error) {
	if args == nil {
		return nil, fmt.Errorf("file_store.data is required")
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode file_store.data: %w", err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode file_store.data: %w", err)
	}
	return out, nil
}

// validKey accepts a single path element only.
func validKey(key string) bool {
	switch key {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(key, `/\`)
}
