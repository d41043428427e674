package pipeline

import (
	"context"
	"path"
	"strings"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/spf13/afero"
)

// Images mirrors the images matched by patterns into dest. With optimize
// set, SVG files are minified; other formats are copied unchanged.
func (p *Pipeline) Images(ctx context.Context, dest string, optimize bool, patterns ...string) (int, error) {
	if !optimize {
		return p.Copy(ctx, dest, patterns...)
	}

	files, err := p.Sources(patterns...)
	if err != nil {
		return 0, err
	}

	optimized := 0
	for _, f := range files {
		target := path.Join(dest, f.Rel)
		if !strings.EqualFold(path.Ext(f.Path), ".svg") {
			if err := p.copyFile(f.Path, target); err != nil {
				return 0, err
			}
			continue
		}

		data, err := afero.ReadFile(p.fs, f.Path)
		if err != nil {
			return 0, errors.NewPipelineError("IMAGE_READ_FAILED", "cannot read image", err).WithPath(f.Path)
		}
		if data, err = p.minify(mediaSVG, f.Path, data); err != nil {
			return 0, err
		}
		if err := p.write(target, data); err != nil {
			return 0, err
		}
		optimized++
	}

	p.logger.Debug(ctx, "Processed images", "dest", dest, "count", len(files), "optimized", optimized)
	return len(files), nil
}
