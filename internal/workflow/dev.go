package workflow

import (
	"context"
	"path"

	"github.com/conneroisu/pressify/internal/dispatch"
	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/reload"
	"github.com/conneroisu/pressify/internal/task"
)

// Dev is the initial dev build: the theme and the welcome page, then every
// asset pipeline in parallel. The theme goes first so a missing build
// directory is reported before anything is written into it.
func (w *Workflow) Dev() task.Node {
	return task.Series(Dev,
		w.themeDev(),
		w.welcomeDev(),
		task.Parallel("assets",
			w.stylesDev(),
			w.headerScriptsDev(),
			w.footerScriptsDev(),
			w.imagesDev(),
			w.fontsDev(),
			w.pluginsDev(),
		),
	)
}

// Bindings maps source trees to the dev tasks that rebuild them.
func (w *Workflow) Bindings() []dispatch.Binding {
	return []dispatch.Binding{
		{Pattern: w.src("assets/css/**/*.css"), Task: w.stylesDev(), Mode: reload.ModeScoped, Reload: "**/*.css"},
		{Pattern: w.src("assets/js/**"), Task: w.footerScriptsDev(), Mode: reload.ModeFull},
		{Pattern: w.src("assets/img/**"), Task: w.imagesDev(), Mode: reload.ModeFull},
		{Pattern: w.src("assets/fonts/**"), Task: w.fontsDev(), Mode: reload.ModeFull},
		{Pattern: w.src("theme/**"), Task: task.Series("theme+styles", w.themeDev(), w.stylesDev()), Mode: reload.ModeFull},
		{Pattern: w.src("plugins/**"), Task: w.pluginsDev(), Mode: reload.ModeFull},
	}
}

func (w *Workflow) themeDir() string {
	return slash(w.cfg.ThemeBuildDir())
}

func (w *Workflow) welcomeDev() task.Node {
	return task.New("welcome", func(ctx context.Context) error {
		_, err := w.pipeline.Copy(ctx, path.Join(slash(w.cfg.Project.BuildDir), "wordpress"), slash(w.cfg.Assets.WelcomePage))
		return err
	})
}

func (w *Workflow) themeDev() task.Node {
	return task.New("theme", func(ctx context.Context) error {
		exists, err := w.buildExists()
		if err != nil {
			return errors.NewIOError("BUILD_STAT_FAILED", "cannot inspect build directory", err)
		}
		if !exists {
			w.console.BuildNotFound()
			return errors.NewMissingPrerequisiteError("BUILD_NOT_FOUND",
				"you need to install the environment first", "pressify env:start").WithPath(w.cfg.Project.BuildDir)
		}
		_, err = w.pipeline.Copy(ctx, w.themeDir(), w.src("theme/**"))
		return err
	})
}

func (w *Workflow) stylesDev() task.Node {
	return task.Stream("styles", func(ctx context.Context) error {
		return w.pipeline.Styles(ctx, w.src("assets/css/style.css"), path.Join(w.themeDir(), "style.css"), false)
	})
}

func (w *Workflow) headerScriptsDev() task.Node {
	return task.Stream("header-scripts", func(ctx context.Context) error {
		return w.pipeline.Bundle(ctx, path.Join(w.themeDir(), "js", "header-bundle.js"), false, slashAll(w.cfg.Assets.HeaderScripts)...)
	})
}

func (w *Workflow) footerScriptsDev() task.Node {
	return task.Stream("footer-scripts", func(ctx context.Context) error {
		return w.pipeline.Bundle(ctx, path.Join(w.themeDir(), "js", "footer-bundle.js"), false, w.src("assets/js/**"))
	})
}

func (w *Workflow) imagesDev() task.Node {
	return task.Stream("images", func(ctx context.Context) error {
		_, err := w.pipeline.Images(ctx, path.Join(w.themeDir(), "img"), false, w.src("assets/img/**"))
		return err
	})
}

func (w *Workflow) fontsDev() task.Node {
	return task.Stream("fonts", func(ctx context.Context) error {
		_, err := w.pipeline.Copy(ctx, path.Join(w.themeDir(), "fonts"), w.src("assets/fonts/**"))
		return err
	})
}

func (w *Workflow) pluginsDev() task.Node {
	return task.Stream("plugins", func(ctx context.Context) error {
		_, err := w.pipeline.Copy(ctx, slash(w.cfg.PluginBuildDir()), w.src("plugins/**"), "!"+w.src("plugins/README.md"))
		return err
	})
}

func slashAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = slash(p)
	}
	return out
}
