package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/task"
)

// Prod builds the theme and plugins into the dist directory and packages
// the theme.
func (w *Workflow) Prod() task.Node {
	return task.Series(Prod,
		task.New("clean-dist", func(ctx context.Context) error {
			return w.pipeline.Clean(ctx, slash(w.cfg.Project.DistDir))
		}),
		task.New("theme-prod", func(ctx context.Context) error {
			_, err := w.pipeline.Copy(ctx, w.distDir(), w.src("theme/**"), "!"+w.src("theme/**/node_modules/**"))
			return err
		}),
		task.Parallel("assets-prod",
			task.New("fonts-prod", func(ctx context.Context) error {
				_, err := w.pipeline.Copy(ctx, path.Join(w.distDir(), "fonts"), w.src("assets/fonts/**"))
				return err
			}),
			task.Stream("styles-prod", func(ctx context.Context) error {
				return w.pipeline.Styles(ctx, w.src("assets/css/style.css"), path.Join(w.distDir(), "style.css"), w.cfg.Assets.Minify)
			}),
			task.Stream("header-scripts-prod", func(ctx context.Context) error {
				return w.pipeline.Bundle(ctx, path.Join(w.distDir(), "js", "header-bundle.js"), w.cfg.Assets.Minify, slashAll(w.cfg.Assets.HeaderScripts)...)
			}),
			task.Stream("footer-scripts-prod", func(ctx context.Context) error {
				return w.pipeline.Bundle(ctx, path.Join(w.distDir(), "js", "footer-bundle.js"), w.cfg.Assets.Minify, w.src("assets/js/**"))
			}),
			task.New("plugins-prod", func(ctx context.Context) error {
				_, err := w.pipeline.Copy(ctx, w.distPluginsDir(), w.src("plugins/**"), "!"+w.src("plugins/**/*.md"))
				return err
			}),
			task.Stream("images-prod", func(ctx context.Context) error {
				_, err := w.pipeline.Images(ctx, path.Join(w.distDir(), "img"), w.cfg.Assets.Minify, w.src("assets/img/**"))
				return err
			}),
		),
		task.New("verify-prod", verifyProd),
		task.New("zip", w.zipTheme),
	)
}

// verifyProd refuses to package a build in which any asset step failed.
func verifyProd(ctx context.Context) error {
	failures := task.Failures(ctx)
	if len(failures) == 0 {
		return nil
	}
	return errors.NewPipelineError("PROD_INCOMPLETE",
		fmt.Sprintf("%d production step(s) failed, the theme was not packaged", len(failures)),
		stderrors.Join(failures...)).
		WithHint("fix the reported asset errors and run pressify prod again")
}

func (w *Workflow) distDir() string {
	return slash(w.cfg.ThemeDistDir())
}

func (w *Workflow) distPluginsDir() string {
	return path.Join(slash(w.cfg.Project.DistDir), "plugins")
}

func (w *Workflow) zipTheme(ctx context.Context) error {
	archivePath := slash(w.cfg.ThemeArchive())
	if _, err := w.archiver.Zip(ctx, w.distDir(), archivePath); err != nil {
		return err
	}
	w.console.Alert()
	w.console.PluginsGenerated(w.distPluginsDir())
	w.console.FilesGenerated(w.cfg.Project.Theme, archivePath)
	w.console.ThankYou()
	return nil
}
