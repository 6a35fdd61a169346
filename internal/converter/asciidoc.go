package converter

import (
	"context"
	"strings"
)

const BackendAsciidoc = "asciidoc"

func init() {
	Register(BackendAsciidoc, func(opts Options) (Converter, error) {
		return &asciidocConverter{}, nil
	})
}

// asciidocConverter stores the source as its own translation. It is used when
// rendering happens client side.
type asciidocConverter struct{}

func (c *asciidocConverter) Backend() string {
	return BackendAsciidoc
}

func (c *asciidocConverter) Convert(ctx context.Context, raw string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := strings.TrimRight(normalizeNewlines(raw), "\n")
	return &Result{Title: asciidocTitle(source), Content: source}, nil
}

// asciidocTitle returns the document title from the header: the first line
// that is neither blank nor a comment must be a level 0 section title.
func asciidocTitle(source string) string {
	inBlockComment := false
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "////" {
			inBlockComment = !inBlockComment
			continue
		}
		if inBlockComment || trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if strings.HasPrefix(line, "= ") {
			return strings.TrimSpace(line[2:])
		}
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
		return ""
	}
	return ""
}
