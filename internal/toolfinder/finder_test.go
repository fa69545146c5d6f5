package toolfinder

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name   string
		tool   string
		output string
		want   string
	}{
		{"vips dash", "vips", "vips-8.14.2\n", "8.14.2"},
		{"vips space", "vips", "vips 8.15.1", "8.15.1"},
		{"exiftool", "exiftool", "12.76\n", "12.76"},
		{"multiline", "vips", "vips-8.14.2\nbuilt with libheif", "8.14.2"},
		{"unknown", "vips", "something", "something"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseVersion(tt.tool, tt.output); got != tt.want {
				t.Errorf("parseVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFinder_CustomPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires unix")
	}
	fake := filepath.Join(t.TempDir(), "vips")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\necho vips-8.15.1\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := NewFinder(Vips, fake).Find()
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if info.Path != fake {
		t.Errorf("Path = %q, want %q", info.Path, fake)
	}
	if info.Version != "8.15.1" {
		t.Errorf("Version = %q", info.Version)
	}
}

func TestFinder_EnvVar(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires unix")
	}
	fake := filepath.Join(t.TempDir(), "exiftool")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\necho 12.76\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(Exiftool.EnvVar, fake)

	info, err := NewFinder(Exiftool, "").Find()
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if info.Version != "12.76" {
		t.Errorf("Version = %q", info.Version)
	}
}

func TestFinder_NotFound(t *testing.T) {
	tool := Tool{Name: "photoledger-no-such-tool", EnvVar: "PHOTOLEDGER_NO_SUCH_TOOL", VersionArgs: []string{"--version"}}
	if _, err := NewFinder(tool, filepath.Join(t.TempDir(), "missing")).Find(); err == nil {
		t.Error("Find() should fail")
	}
}
