package version

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	if info.Name != ApplicationName {
		t.Errorf("expected name %s, got %s", ApplicationName, info.Name)
	}
	if info.Version == "" {
		t.Error("expected non-empty version")
	}
	if info.GoVersion == "" {
		t.Error("expected non-empty go version")
	}
	if !strings.Contains(info.Platform, runtime.GOOS) {
		t.Errorf("expected platform to contain %s, got %s", runtime.GOOS, info.Platform)
	}
}

func TestString(t *testing.T) {
	s := String()

	if !strings.Contains(s, ApplicationName) {
		t.Errorf("expected string to contain %s, got %s", ApplicationName, s)
	}
	if !strings.Contains(s, "version") {
		t.Errorf("expected string to contain 'version', got %s", s)
	}
}

func TestShortWithCommit(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version = "1.2.3"
	Commit = "0123456789abcdef"

	if got, want := Short(), "timedmeta 1.2.3 (01234567)"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if !strings.Contains(String(), "commit: 01234567") {
		t.Errorf("expected commit in %q", String())
	}
}

func TestShortWithoutCommit(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version = "dev"
	Commit = "unknown"

	if got, want := Short(), "timedmeta dev"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestJSON(t *testing.T) {
	out, err := JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var info Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if info.Name != ApplicationName {
		t.Errorf("expected name %s, got %s", ApplicationName, info.Name)
	}
}
