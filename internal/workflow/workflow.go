// Package workflow assembles the named task graphs behind the CLI
// commands and the watch bindings of the dev server.
package workflow

import (
	"context"
	"path"
	"path/filepath"

	"github.com/conneroisu/pressify/internal/archive"
	"github.com/conneroisu/pressify/internal/config"
	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/conneroisu/pressify/internal/pipeline"
	"github.com/conneroisu/pressify/internal/task"
	"github.com/spf13/afero"
)

// Task names.
const (
	EnvStart   = "env:start"
	EnvBuild   = "env:build"
	EnvRebuild = "env:rebuild"
	EnvRestart = "env:restart"
	EnvStop    = "env:stop"
	Dev        = "dev"
	Prod       = "prod"
	Backup     = "backup"
)

// Environment is the container lifecycle. environment.Controller
// implements it.
type Environment interface {
	Provision(ctx context.Context) error
	Start(ctx context.Context) error
	Build(ctx context.Context) error
	Rebuild(ctx context.Context) error
	Restart(ctx context.Context, service string) error
	Stop(ctx context.Context) error
	TeardownAndClean(ctx context.Context) error
}

// Console prints the workflow banners. console.Console implements it.
type Console interface {
	Alert()
	BuildNotFound()
	FilesGenerated(theme, path string)
	PluginsGenerated(path string)
	BackupGenerated(path string)
	ThankYou()
}

// Workflow builds task graphs for one project.
type Workflow struct {
	cfg      *config.Config
	env      Environment
	pipeline *pipeline.Pipeline
	archiver *archive.Archiver
	console  Console
	logger   logging.Logger
}

// New creates a workflow. The pipeline and archiver must share a file
// system rooted at the project directory.
func New(cfg *config.Config, env Environment, p *pipeline.Pipeline, a *archive.Archiver, c Console, logger logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Workflow{
		cfg:      cfg,
		env:      env,
		pipeline: p,
		archiver: a,
		console:  c,
		logger:   logger.WithComponent("workflow"),
	}
}

// Registry returns every named graph. env:restart uses the configured
// default service.
func (w *Workflow) Registry() (*task.Registry, error) {
	r := task.NewRegistry()
	for _, node := range []task.Node{
		w.EnvStart(),
		w.EnvBuild(),
		w.EnvRebuild(),
		w.EnvRestart(w.cfg.Environment.Service),
		w.EnvStop(),
		w.Dev(),
		w.Prod(),
		w.Backup(),
	} {
		if err := r.Register(node); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// EnvStart provisions the environment and starts it.
func (w *Workflow) EnvStart() task.Node {
	return task.Series(EnvStart,
		task.New("provision", w.env.Provision),
		task.New("start", w.env.Start),
	)
}

// EnvBuild provisions the environment and builds its images.
func (w *Workflow) EnvBuild() task.Node {
	return task.Series(EnvBuild,
		task.New("provision", w.env.Provision),
		task.New("build", w.env.Build),
	)
}

// EnvRebuild tears the environment down, removes every generated
// resource, provisions again and recreates the containers.
func (w *Workflow) EnvRebuild() task.Node {
	return task.Series(EnvRebuild,
		task.New("teardown", w.env.TeardownAndClean),
		task.New("provision", w.env.Provision),
		task.New("rebuild", w.env.Rebuild),
	)
}

// EnvRestart restarts one service.
func (w *Workflow) EnvRestart(service string) task.Node {
	return task.New(EnvRestart, func(ctx context.Context) error {
		return w.env.Restart(ctx, service)
	})
}

// EnvStop stops the environment.
func (w *Workflow) EnvStop() task.Node {
	return task.New(EnvStop, w.env.Stop)
}

// Backup zips the build directory into the backup directory.
func (w *Workflow) Backup() task.Node {
	return task.New(Backup, func(ctx context.Context) error {
		dest, err := w.archiver.Backup(ctx, slash(w.cfg.Project.BuildDir), slash(w.cfg.Project.BackupDir))
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeMissingPrerequisite) {
				w.console.BuildNotFound()
			}
			return err
		}
		w.console.Alert()
		w.console.BackupGenerated(dest)
		w.console.ThankYou()
		return nil
	})
}

// src joins a path below the source directory.
func (w *Workflow) src(elem ...string) string {
	return path.Join(append([]string{slash(w.cfg.Project.SourceDir)}, elem...)...)
}

func (w *Workflow) buildExists() (bool, error) {
	return afero.DirExists(w.pipeline.Fs(), slash(w.cfg.Project.BuildDir))
}

func slash(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
