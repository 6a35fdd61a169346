package converter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const BackendMarkdown = "markdown"

func init() {
	Register(BackendMarkdown, func(opts Options) (Converter, error) {
		return &markdownConverter{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}, nil
	})
}

type markdownConverter struct {
	md goldmark.Markdown
}

func (c *markdownConverter) Backend() string {
	return BackendMarkdown
}

func (c *markdownConverter) Convert(ctx context.Context, raw string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := []byte(normalizeNewlines(raw))
	doc := c.md.Parser().Parse(text.NewReader(source))
	var out bytes.Buffer
	if err := c.md.Renderer().Render(&out, source, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return &Result{Title: markdownTitle(doc, source), Content: out.String()}, nil
}

func markdownTitle(doc ast.Node, source []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Level == 1 {
			title = strings.TrimSpace(string(heading.Text(source)))
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	return title
}
