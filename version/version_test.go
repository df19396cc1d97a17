package version

import (
	"runtime/debug"
	"testing"
)

func stub(t *testing.T, version, commit, buildTime string, bi *debug.BuildInfo) {
	t.Helper()
	origV, origC, origB, origRead := Version, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = origV, origC, origB, origRead
	})
	Version, GitCommit, BuildTime = version, commit, buildTime
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestGetVersionInfo_LinkerValuesWin(t *testing.T) {
	stub(t, "1.4.0", "abc1234", "2026-01-02T03:04:05Z", &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "ffffffffffffffff"},
			{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
		},
	})

	info := GetVersionInfo()
	if info.Version != "1.4.0" || info.GitCommit != "abc1234" || info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.GoVersion != "go1.26.0" {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
}

func TestGetVersionInfo_FallsBackToVCS(t *testing.T) {
	stub(t, "dev", "", "", &debug.BuildInfo{
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := GetVersionInfo()
	if info.GitCommit != "0123456" {
		t.Errorf("GitCommit = %q", info.GitCommit)
	}
	if info.BuildTime != "2026-03-04T05:06:07Z" || !info.Dirty {
		t.Errorf("unexpected info %+v", info)
	}
	if got := info.String(); got != "dev (0123456-dirty, 2026-03-04T05:06:07Z)" {
		t.Errorf("String() = %q", got)
	}
}

func TestGetVersionInfo_NoBuildInfo(t *testing.T) {
	stub(t, "dev", "", "", nil)

	info := GetVersionInfo()
	if info.String() != "dev" {
		t.Errorf("String() = %q", info.String())
	}
}
