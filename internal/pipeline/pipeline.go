// Package pipeline implements the file transforms behind the stream
// tasks: copying trees, bundling scripts, inlining and minifying styles
// and optimizing images.
//
// Every transform reads and writes through an afero.Fs rooted at the
// project directory, so paths are project-relative and slash-separated.
// Failures are returned as recoverable pipeline errors.
package pipeline

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/glob"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	mediaCSS = "text/css"
	mediaJS  = "application/javascript"
	mediaSVG = "image/svg+xml"
)

// File is one resolved source file.
type File struct {
	// Path is the project-relative path of the file.
	Path string
	// Rel is the path below the static base of the pattern that matched it.
	Rel string
}

// Pipeline runs transforms against a file system.
type Pipeline struct {
	fs       afero.Fs
	minifier *minify.M
	logger   logging.Logger
}

// New creates a pipeline on fs.
func New(fs afero.Fs, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}

	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaJS, js.Minify)
	m.AddFunc(mediaSVG, svg.Minify)

	return &Pipeline{
		fs:       fs,
		minifier: m,
		logger:   logger.WithComponent("pipeline"),
	}
}

// Fs returns the file system the pipeline works on.
func (p *Pipeline) Fs() afero.Fs {
	return p.fs
}

// Sources resolves patterns into files, sorted by path. "!" patterns
// exclude. A pattern whose base does not exist resolves to nothing.
func (p *Pipeline) Sources(patterns ...string) ([]File, error) {
	set := glob.Compile(patterns...)
	seen := make(map[string]bool)
	var files []File

	add := func(include, name string) {
		if seen[name] || !set.Match(name) || !glob.Match(include, name) {
			return
		}
		seen[name] = true
		files = append(files, File{Path: name, Rel: glob.Rel(include, name)})
	}

	for _, include := range set.Includes() {
		base := glob.Base(include)
		info, err := p.fs.Stat(base)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.NewPipelineError("SOURCE_STAT_FAILED", "cannot read source", err).WithPath(base)
		}
		if !info.IsDir() {
			add(include, base)
			continue
		}

		err = afero.Walk(p.fs, base, func(walked string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				add(include, filepath.ToSlash(walked))
			}
			return nil
		})
		if err != nil {
			return nil, errors.NewPipelineError("SOURCE_WALK_FAILED", "cannot read source tree", err).WithPath(base)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Copy mirrors the files matched by patterns into dest and returns how
// many were copied.
func (p *Pipeline) Copy(ctx context.Context, dest string, patterns ...string) (int, error) {
	files, err := p.Sources(patterns...)
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		if err := p.copyFile(f.Path, path.Join(dest, f.Rel)); err != nil {
			return 0, err
		}
	}

	p.logger.Debug(ctx, "Copied files", "dest", dest, "count", len(files))
	return len(files), nil
}

func (p *Pipeline) copyFile(src, dst string) error {
	in, err := p.fs.Open(src)
	if err != nil {
		return errors.NewPipelineError("COPY_FAILED", "cannot open source", err).WithPath(src)
	}
	defer in.Close()

	if err := p.fs.MkdirAll(path.Dir(dst), 0755); err != nil {
		return errors.NewPipelineError("COPY_FAILED", "cannot create directory", err).WithPath(path.Dir(dst))
	}

	out, err := p.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.NewPipelineError("COPY_FAILED", "cannot create file", err).WithPath(dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.NewPipelineError("COPY_FAILED", "cannot copy file", err).WithPath(dst)
	}
	return nil
}

func (p *Pipeline) write(dst string, data []byte) error {
	if err := p.fs.MkdirAll(path.Dir(dst), 0755); err != nil {
		return errors.NewPipelineError("WRITE_FAILED", "cannot create directory", err).WithPath(path.Dir(dst))
	}
	if err := afero.WriteFile(p.fs, dst, data, 0644); err != nil {
		return errors.NewPipelineError("WRITE_FAILED", "cannot write file", err).WithPath(dst)
	}
	return nil
}

func (p *Pipeline) minify(mediatype, name string, data []byte) ([]byte, error) {
	out, err := p.minifier.Bytes(mediatype, data)
	if err != nil {
		return nil, errors.NewPipelineError("MINIFY_FAILED", "cannot minify", err).WithPath(name)
	}
	return out, nil
}

// Clean removes dir and everything below it. A missing dir is fine.
func (p *Pipeline) Clean(ctx context.Context, dir string) error {
	if err := p.fs.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("CLEAN_FAILED", "cannot remove directory", err).WithPath(dir)
	}
	p.logger.Debug(ctx, "Cleaned directory", "dir", dir)
	return nil
}
