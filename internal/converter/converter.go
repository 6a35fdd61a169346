package converter

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Result is the output of one conversion. Title is the document's first level
// heading as seen by the backend and is empty when the source has none.
type Result struct {
	Title   string
	Content string
}

type Converter interface {
	Backend() string
	Convert(ctx context.Context, raw string) (*Result, error)
}

var contentTypes = map[string]string{
	BackendHTML5:    "text/html; charset=utf-8",
	BackendMarkdown: "text/html; charset=utf-8",
	BackendAsciidoc: "text/asciidoc; charset=utf-8",
}

var extensions = map[string]string{
	BackendHTML5:    ".html",
	BackendMarkdown: ".html",
	BackendAsciidoc: ".adoc",
}

// ContentTypeFor returns the media type of translations produced by backend.
func ContentTypeFor(backend string) string {
	if ct, ok := contentTypes[strings.ToLower(backend)]; ok {
		return ct
	}
	return "text/plain; charset=utf-8"
}

// ExtensionFor returns the file extension used when a translation is written
// to a file store.
func ExtensionFor(backend string) string {
	if ext, ok := extensions[strings.ToLower(backend)]; ok {
		return ext
	}
	return ".txt"
}

type Options struct {
	Attributes map[string]string
}

type Factory func(opts Options) (Converter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(backend string, opts Options) (Converter, error) {
	key := strings.ToLower(strings.TrimSpace(backend))
	if key == "" {
		return nil, fmt.Errorf("converter backend is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported converter backend: %s", backend)
	}
	return factory(opts)
}

// Backends lists the registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

func normalizeNewlines(raw string) string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	return strings.ReplaceAll(raw, "\r\n", "\n")
}
