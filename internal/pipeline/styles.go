package pipeline

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/spf13/afero"
)

// importPattern matches @import "x.css"; and @import url(x.css);
var importPattern = regexp.MustCompile(`@import\s+(?:url\(\s*)?["']?([^"');\s]+)["']?\s*\)?\s*;`)

// Styles builds the stylesheet entry into dest. Local @import rules are
// inlined recursively; remote ones are kept. With minify set the result is
// minified.
func (p *Pipeline) Styles(ctx context.Context, entry, dest string, minify bool) error {
	out, err := p.inline(entry, nil)
	if err != nil {
		return err
	}

	data := []byte(out)
	if minify {
		if data, err = p.minify(mediaCSS, entry, data); err != nil {
			return err
		}
	}

	if err := p.write(dest, data); err != nil {
		return err
	}
	p.logger.Debug(ctx, "Built stylesheet", "entry", entry, "dest", dest)
	return nil
}

func (p *Pipeline) inline(file string, stack []string) (string, error) {
	for _, open := range stack {
		if open == file {
			return "", errors.NewPipelineError("IMPORT_CYCLE",
				fmt.Sprintf("import cycle: %s -> %s", strings.Join(stack, " -> "), file), nil).WithPath(file)
		}
	}

	data, err := afero.ReadFile(p.fs, file)
	if err != nil {
		if len(stack) > 0 {
			return "", errors.NewPipelineError("IMPORT_NOT_FOUND",
				"cannot resolve import from "+stack[len(stack)-1], err).WithPath(file)
		}
		return "", errors.NewPipelineError("STYLES_READ_FAILED", "cannot read stylesheet", err).WithPath(file)
	}

	stack = append(stack, file)
	var inlineErr error
	out := importPattern.ReplaceAllStringFunc(string(data), func(rule string) string {
		if inlineErr != nil {
			return rule
		}
		target := importPattern.FindStringSubmatch(rule)[1]
		if isRemote(target) {
			return rule
		}
		resolved := path.Join(path.Dir(file), target)
		if path.Ext(resolved) == "" {
			resolved += ".css"
		}
		body, err := p.inline(resolved, stack)
		if err != nil {
			inlineErr = err
			return rule
		}
		return body
	})
	if inlineErr != nil {
		return "", inlineErr
	}
	return out, nil
}

func isRemote(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "//")
}
