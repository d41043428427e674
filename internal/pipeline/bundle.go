package pipeline

import (
	"bytes"
	"context"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/spf13/afero"
)

// Bundle concatenates the scripts matched by patterns into dest, in path
// order. With minify set the bundle is minified. No matching file writes
// nothing.
func (p *Pipeline) Bundle(ctx context.Context, dest string, minify bool, patterns ...string) error {
	files, err := p.Sources(patterns...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		p.logger.Debug(ctx, "Nothing to bundle", "dest", dest)
		return nil
	}

	var buf bytes.Buffer
	for _, f := range files {
		data, err := afero.ReadFile(p.fs, f.Path)
		if err != nil {
			return errors.NewPipelineError("BUNDLE_FAILED", "cannot read script", err).WithPath(f.Path)
		}
		buf.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}

	out := buf.Bytes()
	if minify {
		if out, err = p.minify(mediaJS, dest, out); err != nil {
			return err
		}
	}

	if err := p.write(dest, out); err != nil {
		return err
	}
	p.logger.Debug(ctx, "Bundled scripts", "dest", dest, "files", len(files))
	return nil
}
