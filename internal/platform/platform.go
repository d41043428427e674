// Package platform abstracts the host-specific values the provisioner
// substitutes into generated files and the way a browser is opened.
//
// One Adapter is selected at startup with Detect and injected wherever it
// is needed; nothing else branches on runtime.GOOS.
package platform

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Value names a platform value that can fill a template placeholder.
type Value string

const (
	ValueUID         Value = "uid"
	ValueGID         Value = "gid"
	ValueHostAddress Value = "host_address"
)

const (
	// LinuxHostAddress is the docker bridge gateway of the default compose
	// network. Projects on a different subnet override it in config.
	LinuxHostAddress = "172.29.0.1"

	// DesktopHostAddress resolves to the host on Docker Desktop.
	DesktopHostAddress = "host.docker.internal"
)

// Adapter returns the identity and host-address values appropriate to the
// current platform.
type Adapter interface {
	Name() string
	UID() (string, error)
	GID() (string, error)
	HostAddress() string
	OpenURL(url string) error
}

// Resolve returns the adapter's value for v.
func Resolve(a Adapter, v Value) (string, error) {
	switch v {
	case ValueUID:
		return a.UID()
	case ValueGID:
		return a.GID()
	case ValueHostAddress:
		return a.HostAddress(), nil
	default:
		return "", fmt.Errorf("unknown platform value %q", v)
	}
}

// Options tweak the detected adapter.
type Options struct {
	// HostAddress overrides the platform default when non-empty.
	HostAddress string
}

// Detect selects the adapter for the running OS.
func Detect(opts Options) Adapter {
	return ForOS(runtime.GOOS, opts)
}

// ForOS selects the adapter for goos.
func ForOS(goos string, opts Options) Adapter {
	switch goos {
	case "windows":
		host := DesktopHostAddress
		if opts.HostAddress != "" {
			host = opts.HostAddress
		}
		return &Windows{run: commandOutput, hostAddress: host}
	case "darwin":
		host := DesktopHostAddress
		if opts.HostAddress != "" {
			host = opts.HostAddress
		}
		return &Posix{name: "darwin", hostAddress: host, opener: []string{"open"}}
	default:
		host := LinuxHostAddress
		if opts.HostAddress != "" {
			host = opts.HostAddress
		}
		return &Posix{name: goos, hostAddress: host, opener: []string{"xdg-open"}}
	}
}

// Posix reads the identity of the running process.
type Posix struct {
	name        string
	hostAddress string
	opener      []string
}

func (p *Posix) Name() string { return p.name }

func (p *Posix) UID() (string, error) {
	uid := processUID()
	if uid < 0 {
		return "", fmt.Errorf("uid is not available on %s", p.name)
	}
	return fmt.Sprint(uid), nil
}

func (p *Posix) GID() (string, error) {
	gid := processGID()
	if gid < 0 {
		return "", fmt.Errorf("gid is not available on %s", p.name)
	}
	return fmt.Sprint(gid), nil
}

func (p *Posix) HostAddress() string { return p.hostAddress }

func (p *Posix) OpenURL(url string) error {
	args := append(append([]string(nil), p.opener[1:]...), url)
	return exec.Command(p.opener[0], args...).Start()
}

// Windows asks the shell for the identity the container user should map
// to; the Go process has no POSIX uid there.
type Windows struct {
	run         func(ctx context.Context, name string, args ...string) (string, error)
	hostAddress string
}

func (w *Windows) Name() string { return "windows" }

func (w *Windows) UID() (string, error) {
	return w.run(context.Background(), "id", "-u")
}

func (w *Windows) GID() (string, error) {
	return w.run(context.Background(), "id", "-g")
}

func (w *Windows) HostAddress() string { return w.hostAddress }

func (w *Windows) OpenURL(url string) error {
	return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Static is an Adapter with fixed values.
type Static struct {
	User    string
	Group   string
	Address string
	Opened  []string
}

func (s *Static) Name() string {
	return "static"
}

func (s *Static) UID() (string, error) {
	return s.User, nil
}

func (s *Static) GID() (string, error) {
	return s.Group, nil
}

func (s *Static) HostAddress() string {
	return s.Address
}

func (s *Static) OpenURL(url string) error {
	s.Opened = append(s.Opened, url)
	return nil
}
