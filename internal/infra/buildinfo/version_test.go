package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestResolve_InjectedValuesWin(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.9.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
	got := resolve("v1.2.3", "abc123", "today", bi)
	if got.Version != "v1.2.3" || got.Commit != "abc123" || got.BuildTime != "today" {
		t.Errorf("resolve() = %+v", got)
	}
}

func TestResolve_FallsBackToBuildSettings(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.9.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	got := resolve("dev", "unknown", "unknown", bi)
	if got.Version != "v0.9.0" {
		t.Errorf("Version = %q", got.Version)
	}
	if got.Commit != "0123456789ab" {
		t.Errorf("Commit = %q", got.Commit)
	}
	if got.BuildTime != "2026-01-02T03:04:05Z" || !got.Modified {
		t.Errorf("resolve() = %+v", got)
	}
}

func TestResolve_DevelModule(t *testing.T) {
	got := resolve("dev", "unknown", "unknown", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if got.Version != "dev" {
		t.Errorf("Version = %q, want dev", got.Version)
	}
	if got.GoVersion == "" || !strings.Contains(got.Platform, "/") {
		t.Errorf("runtime fields missing: %+v", got)
	}
}

func TestString(t *testing.T) {
	s := String()
	i := Get()
	if !strings.HasPrefix(s, i.Version+" (") || !strings.Contains(s, "built at "+i.BuildTime) {
		t.Errorf("String() = %q", s)
	}
}
