package converter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeVips пишет shell-скрипт, имитирующий "vips copy src out[Q=..]".
func fakeVips(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires unix")
	}
	path := filepath.Join(t.TempDir(), "vips")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// okScript отрезает суффикс [Q=..] и пишет в файл байты JPEG.
const okScript = `out="${3%%\[*}"
printf '\377\330\377\331' > "$out"
`

func TestConverter_Transcode(t *testing.T) {
	vips := fakeVips(t, okScript)
	dir := t.TempDir()
	src := filepath.Join(dir, "img001.HEIC")
	_ = os.WriteFile(src, []byte("heic"), 0o644)
	dst := filepath.Join(dir, "out", "2021", "img001.jpg")

	c := New(vips, "[Q=95]")
	if err := c.Transcode(context.Background(), src, dst); err != nil {
		t.Fatalf("Transcode() error = %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil || info.Size() == 0 {
		t.Fatalf("destination missing or empty: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "2021", "img001.converting.jpg")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestConverter_TranscodeFailureKeepsStderr(t *testing.T) {
	vips := fakeVips(t, "echo 'VipsForeignLoad: not a known file format' >&2\nexit 1\n")
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.jpg")

	err := New(vips, "[Q=95]").Transcode(context.Background(), filepath.Join(dir, "a.heic"), dst)
	if !IsCodec(err) {
		t.Fatalf("error = %v, want CodecError", err)
	}
	ce := err.(*CodecError)
	if ce.Stderr != "VipsForeignLoad: not a known file format" {
		t.Errorf("Stderr = %q", ce.Stderr)
	}
	if !strings.Contains(err.Error(), "not a known file format") {
		t.Errorf("Error() = %q, want stderr included", err.Error())
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("destination must not exist after failure")
	}
}

func TestConverter_TranscodeEmptyOutput(t *testing.T) {
	vips := fakeVips(t, `out="${3%%\[*}"
: > "$out"
`)
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.jpg")

	err := New(vips, "[Q=95]").Transcode(context.Background(), filepath.Join(dir, "a.heic"), dst)
	if !IsCodec(err) {
		t.Fatalf("error = %v, want CodecError", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("empty output must not be renamed into place")
	}
}

func TestConverter_TranscodeTimeout(t *testing.T) {
	vips := fakeVips(t, "exec sleep 5\n")
	c := New(vips, "[Q=95]")
	c.SetTimeout(100 * time.Millisecond)

	err := c.Transcode(context.Background(), "a.heic", filepath.Join(t.TempDir(), "a.jpg"))
	if !IsCodec(err) {
		t.Fatalf("error = %v, want CodecError", err)
	}
}

func TestConverter_PassesQuality(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	vips := fakeVips(t, "printf '%s\\n' \"$@\" > "+argsFile+"\n"+okScript)
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.jpg")

	if err := New(vips, "[Q=80]").Transcode(context.Background(), "a.heic", dst); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(argsFile)
	want := "copy\na.heic\n" + filepath.Join(dir, "a.converting.jpg") + "[Q=80]\n"
	if string(got) != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestConverter_CheckHealth(t *testing.T) {
	if err := New(fakeVips(t, "echo vips-8.15.1\n"), "[Q=95]").CheckHealth(); err != nil {
		t.Errorf("CheckHealth() error = %v", err)
	}
	if err := New(filepath.Join(t.TempDir(), "missing"), "[Q=95]").CheckHealth(); err == nil {
		t.Error("CheckHealth() should fail for missing binary")
	}
}
