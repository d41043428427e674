// Package console prints the branded status messages and the audible
// alert that accompany builds, failures and packaging.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/conneroisu/pressify/internal/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Brand is the product name shown in banners.
const Brand = "Pressify"

// ThemeTitle turns a theme slug into a display name.
func ThemeTitle(slug string) string {
	return cases.Title(language.English).String(slug)
}

type styles struct {
	brand   lipgloss.Style
	error   lipgloss.Style
	warning lipgloss.Style
	bold    lipgloss.Style
	faint   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		brand:   r.NewStyle().Background(lipgloss.Color("2")).Foreground(lipgloss.Color("0")).Bold(true),
		error:   r.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15")),
		warning: r.NewStyle().Background(lipgloss.Color("3")).Foreground(lipgloss.Color("0")),
		bold:    r.NewStyle().Bold(true),
		faint:   r.NewStyle().Faint(true),
	}
}

// Console writes messages to a terminal.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
	bell   bool
}

// Options configure a Console.
type Options struct {
	// Quiet disables the audible alert.
	Quiet bool
}

// New creates a console writing to out. Colors are used only when out is a
// terminal.
func New(out io.Writer, opts Options) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out)),
		bell:   !opts.Quiet,
	}
}

// Alert rings the terminal bell.
func (c *Console) Alert() {
	if !c.bell {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, "\a")
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func (c *Console) brand() string {
	return c.styles.brand.Render(Brand)
}

// Error prints the error banner with the error's hint, if any.
func (c *Console) Error(err error) {
	c.println(c.brand() + " - " + c.styles.error.Render("Error") + " " + err.Error())
	if hint := errors.HintFor(err); hint != "" {
		c.println("  Run the command: $ " + c.styles.bold.Render(hint))
	}
}

// Warning prints a warning banner.
func (c *Console) Warning(msg string) {
	c.println(c.brand() + " - " + c.styles.warning.Render("Warning") + " " + msg)
}

// BuildNotFound tells the user to provision and start the environment.
func (c *Console) BuildNotFound() {
	c.println(c.styles.error.Render("Error") + " - You need to build the project first. Run the command: $ " +
		c.styles.bold.Render("pressify env:start"))
}

// DevServerReady announces the proxy URL.
func (c *Console) DevServerReady(url string) {
	c.println(c.brand() + " - Your development server is ready at " + c.styles.bold.Render(url))
}

// FilesGenerated reports the packaged theme.
func (c *Console) FilesGenerated(theme, path string) {
	c.println(fmt.Sprintf("Your %s theme was packaged in: %s - done", ThemeTitle(theme), c.styles.bold.Render(path)))
}

// PluginsGenerated reports the production plugin directory.
func (c *Console) PluginsGenerated(path string) {
	c.println("Plugins are generated in: " + c.styles.bold.Render(path) + " - done")
}

// BackupGenerated reports a written backup archive.
func (c *Console) BackupGenerated(path string) {
	c.println("Your backup was generated in: " + c.styles.bold.Render(path) + " - done")
}

// ThankYou prints the sign-off line.
func (c *Console) ThankYou() {
	c.println("Thank you for using " + c.brand() + c.styles.faint.Render(" - https://github.com/conneroisu/pressify"))
}

// ReportFailure implements task.Reporter: it alerts and prints the error
// banner, and the workflow carries on.
func (c *Console) ReportFailure(_ context.Context, err error) {
	c.Alert()
	c.Error(err)
}
