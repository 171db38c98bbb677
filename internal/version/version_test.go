package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFromLdflags(t *testing.T) {
	info := resolve(Info{Version: "v1.0.0", Commit: "0123456789abcdef"}, nil)
	assert.Equal(t, "v1.0.0 (0123456789ab)", info.String())
}

func TestResolveFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
	info := resolve(Info{}, bi)
	assert.Equal(t, Info{
		Version:   "dev",
		Commit:    "abc123",
		BuildTime: "2026-01-02T03:04:05Z",
		GoVersion: "go1.26.0",
	}, info)
	assert.Equal(t, "dev (abc123)", info.String())
}

func TestResolveModuleVersion(t *testing.T) {
	bi := &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}}
	assert.Equal(t, "v0.3.1", resolve(Info{}, bi).Version)
	assert.Equal(t, "v0.4.0", resolve(Info{Version: "v0.4.0"}, bi).Version)
}
