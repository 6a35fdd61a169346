package converter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
)

const BackendHTML5 = "html5"

func init() {
	Register(BackendHTML5, func(opts Options) (Converter, error) {
		attrs := make(map[string]interface{}, len(opts.Attributes))
		for k, v := range opts.Attributes {
			attrs[k] = v
		}
		return &html5Converter{attributes: attrs}, nil
	})
}

// html5Converter renders AsciiDoc to an HTML5 body fragment.
type html5Converter struct {
	attributes map[string]interface{}
}

func (c *html5Converter) Backend() string {
	return BackendHTML5
}

func (c *html5Converter) Convert(ctx context.Context, raw string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := normalizeNewlines(raw)
	cfg := configuration.NewConfiguration(
		configuration.WithBackEnd(BackendHTML5),
		configuration.WithHeaderFooter(false),
		configuration.WithAttributes(c.attributes),
	)
	var out bytes.Buffer
	meta, err := libasciidoc.Convert(strings.NewReader(source), &out, cfg)
	if err != nil {
		return nil, fmt.Errorf("convert asciidoc: %w", err)
	}
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = asciidocTitle(source)
	}
	return &Result{Title: title, Content: out.String()}, nil
}
