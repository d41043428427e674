package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func withVars(t *testing.T, v, commit, built string) {
	t.Helper()
	ov, oc, ob := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = v, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = ov, oc, ob })
}

func TestLdflagsWin(t *testing.T) {
	withVars(t, "v1.2.0", "0123456789abcdef", "2026-10-17T10:00:00Z")
	withBuildInfo(t, nil)

	info := GetBuildInfo()

	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), info.BuildTime)
	assert.Equal(t, "pressify v1.2.0 (0123456)", info.String())
}

func TestFallsBackToVCSSettings(t *testing.T) {
	withVars(t, "dev", "unknown", "unknown")
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef0123456789"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := GetBuildInfo()

	assert.Equal(t, "dev-abcdef0", info.Version)
	assert.Equal(t, "abcdef0123456789", info.GitCommit)
	assert.True(t, info.Dirty)
	assert.True(t, info.BuildTime.IsZero())
	assert.Equal(t, "pressify dev-abcdef0 (dirty)", info.String())
	assert.Contains(t, info.Detailed(), "Commit: abcdef0123456789")
}

func TestUnknownEverything(t *testing.T) {
	withVars(t, "dev", "unknown", "not a time")
	withBuildInfo(t, nil)

	info := GetBuildInfo()

	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.GitCommit)
	assert.NotContains(t, info.Detailed(), "Commit")
	assert.NotContains(t, info.Detailed(), "Built")
}
