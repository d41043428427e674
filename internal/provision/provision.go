// Package provision materializes the on-disk resources the container
// environment needs: directories and files generated from templates by
// placeholder substitution.
//
// Resources are write-once. Ensure never touches a target that already
// exists, so running it any number of times leaves the same content as
// running it once.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/pressify/internal/config"
	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/conneroisu/pressify/internal/platform"
	"github.com/spf13/afero"
)

// Kind distinguishes directory resources from generated files.
type Kind int

const (
	KindDir Kind = iota
	KindTemplate
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// Placeholder replaces every occurrence of Token with a platform value.
type Placeholder struct {
	Token string
	Value platform.Value
}

// Resource is one provisioned artifact.
type Resource struct {
	Kind         Kind
	Target       string
	Template     string
	Placeholders []Placeholder
}

// Dir declares a directory resource.
func Dir(path string) Resource {
	return Resource{Kind: KindDir, Target: path}
}

// Template declares a file generated from template.
func Template(target, template string, placeholders ...Placeholder) Resource {
	return Resource{
		Kind:         KindTemplate,
		Target:       target,
		Template:     template,
		Placeholders: placeholders,
	}
}

// Outcome reports what Ensure did.
type Outcome int

const (
	// OutcomeSkipped means the target already existed. It is not an error.
	OutcomeSkipped Outcome = iota
	OutcomeCreated
)

// String returns the string representation of the Outcome
func (o Outcome) String() string {
	if o == OutcomeCreated {
		return "created"
	}
	return "skipped"
}

// Provisioner creates resources on a file system.
type Provisioner struct {
	fs        afero.Fs
	adapter   platform.Adapter
	resources []Resource
	logger    logging.Logger
}

// New creates a provisioner for resources. fs is usually rooted at the
// project directory.
func New(fs afero.Fs, adapter platform.Adapter, logger logging.Logger, resources ...Resource) *Provisioner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Provisioner{
		fs:        fs,
		adapter:   adapter,
		resources: append([]Resource(nil), resources...),
		logger:    logger.WithComponent("provision"),
	}
}

// FromConfig declares the configured directories followed by the
// configured templates.
func FromConfig(cfg *config.Config) []Resource {
	resources := make([]Resource, 0, len(cfg.Environment.Directories)+len(cfg.Environment.Templates))
	for _, dir := range cfg.Environment.Directories {
		resources = append(resources, Dir(dir))
	}
	for _, tmpl := range cfg.Environment.Templates {
		placeholders := make([]Placeholder, 0, len(tmpl.Placeholders))
		for _, ph := range tmpl.Placeholders {
			placeholders = append(placeholders, Placeholder{Token: ph.Token, Value: platform.Value(ph.Value)})
		}
		resources = append(resources, Template(tmpl.Target, tmpl.Source, placeholders...))
	}
	return resources
}

// Resources returns the declared resources.
func (p *Provisioner) Resources() []Resource {
	return append([]Resource(nil), p.resources...)
}

// Ensure creates r unless its target already exists.
func (p *Provisioner) Ensure(ctx context.Context, r Resource) (Outcome, error) {
	exists, err := afero.Exists(p.fs, r.Target)
	if err != nil {
		return OutcomeSkipped, errors.NewProvisioningError("STAT_FAILED", "cannot inspect resource", err).WithPath(r.Target)
	}
	if exists {
		p.logger.Debug(ctx, "Resource present", "path", r.Target)
		return OutcomeSkipped, nil
	}

	switch r.Kind {
	case KindDir:
		if err := p.fs.MkdirAll(r.Target, 0755); err != nil {
			return OutcomeSkipped, errors.NewProvisioningError("MKDIR_FAILED", "cannot create directory", err).WithPath(r.Target)
		}
	case KindTemplate:
		if err := p.render(r); err != nil {
			return OutcomeSkipped, err
		}
	default:
		return OutcomeSkipped, errors.NewInternalError("UNKNOWN_RESOURCE", fmt.Sprintf("unknown resource kind %d", r.Kind), nil)
	}

	p.logger.Info(ctx, "Resource created", "path", r.Target, "kind", r.Kind.String())
	return OutcomeCreated, nil
}

func (p *Provisioner) render(r Resource) error {
	data, err := afero.ReadFile(p.fs, r.Template)
	if err != nil {
		return errors.NewProvisioningError("TEMPLATE_READ_FAILED", "cannot read template", err).WithPath(r.Template)
	}

	contents := string(data)
	for _, ph := range r.Placeholders {
		value, err := platform.Resolve(p.adapter, ph.Value)
		if err != nil {
			return errors.NewProvisioningError("PLACEHOLDER_FAILED", "cannot resolve "+ph.Token, err).WithPath(r.Target)
		}
		contents = strings.ReplaceAll(contents, ph.Token, value)
	}

	if dir := filepath.Dir(r.Target); dir != "." {
		if err := p.fs.MkdirAll(dir, 0755); err != nil {
			return errors.NewProvisioningError("MKDIR_FAILED", "cannot create directory", err).WithPath(dir)
		}
	}

	// A failed write is left for manual cleanup
	if err := afero.WriteFile(p.fs, r.Target, []byte(contents), 0644); err != nil {
		return errors.NewProvisioningError("WRITE_FAILED", "cannot write generated file", err).WithPath(r.Target)
	}
	return nil
}

// EnsureAll ensures every declared resource in declaration order and
// returns how many were created.
func (p *Provisioner) EnsureAll(ctx context.Context) (int, error) {
	created := 0
	for _, r := range p.resources {
		outcome, err := p.Ensure(ctx, r)
		if err != nil {
			return created, err
		}
		if outcome == OutcomeCreated {
			created++
		}
	}
	return created, nil
}

// Provisioned reports whether every declared resource exists.
func (p *Provisioner) Provisioned() bool {
	for _, r := range p.resources {
		exists, err := afero.Exists(p.fs, r.Target)
		if err != nil || !exists {
			return false
		}
	}
	return true
}

// Missing returns the targets that do not exist yet.
func (p *Provisioner) Missing() []string {
	var missing []string
	for _, r := range p.resources {
		if exists, err := afero.Exists(p.fs, r.Target); err != nil || !exists {
			missing = append(missing, r.Target)
		}
	}
	return missing
}

// Clean removes every declared resource, newest first. Directories are
// removed with their contents.
func (p *Provisioner) Clean(ctx context.Context) error {
	for i := len(p.resources) - 1; i >= 0; i-- {
		r := p.resources[i]
		if err := p.fs.RemoveAll(r.Target); err != nil && !os.IsNotExist(err) {
			return errors.NewProvisioningError("REMOVE_FAILED", "cannot remove resource", err).WithPath(r.Target)
		}
		p.logger.Debug(ctx, "Resource removed", "path", r.Target)
	}
	return nil
}
