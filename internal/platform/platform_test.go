package platform

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForOSHostAddress(t *testing.T) {
	testCases := []struct {
		goos     string
		opts     Options
		name     string
		expected string
	}{
		{"linux", Options{}, "linux", LinuxHostAddress},
		{"darwin", Options{}, "darwin", DesktopHostAddress},
		{"windows", Options{}, "windows", DesktopHostAddress},
		{"linux", Options{HostAddress: "10.0.0.1"}, "linux", "10.0.0.1"},
	}

	for _, tc := range testCases {
		t.Run(tc.goos+"/"+tc.expected, func(t *testing.T) {
			adapter := ForOS(tc.goos, tc.opts)
			assert.Equal(t, tc.name, adapter.Name())
			assert.Equal(t, tc.expected, adapter.HostAddress())
		})
	}
}

func TestPosixIdentity(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix identity")
	}

	adapter := ForOS(runtime.GOOS, Options{})
	uid, err := adapter.UID()
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getuid()), uid)

	gid, err := adapter.GID()
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getgid()), gid)
}

func TestWindowsIdentityUsesShell(t *testing.T) {
	var calls [][]string
	adapter := &Windows{
		hostAddress: DesktopHostAddress,
		run: func(ctx context.Context, name string, args ...string) (string, error) {
			calls = append(calls, append([]string{name}, args...))
			if args[0] == "-u" {
				return "1000", nil
			}
			return "", errors.New("id: not found")
		},
	}

	uid, err := adapter.UID()
	require.NoError(t, err)
	assert.Equal(t, "1000", uid)

	_, err = adapter.GID()
	assert.Error(t, err)
	assert.Equal(t, [][]string{{"id", "-u"}, {"id", "-g"}}, calls)
}

func TestResolve(t *testing.T) {
	adapter := &Static{User: "501", Group: "20", Address: "host.docker.internal"}

	for value, expected := range map[Value]string{
		ValueUID:         "501",
		ValueGID:         "20",
		ValueHostAddress: "host.docker.internal",
	} {
		got, err := Resolve(adapter, value)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}

	_, err := Resolve(adapter, Value("hostname"))
	assert.Error(t, err)
}
