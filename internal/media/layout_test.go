package media

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a/img001.HEIC", FormatHEIC},
		{"a/img001.heic", FormatHEIC},
		{"a/img001.heif", FormatHEIC},
		{"a/img001.jpg", FormatJPEG},
		{"a/img001.JPEG", FormatJPEG},
		{"a/clip.mov", FormatOther},
		{"a/noext", FormatOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectFormat(tt.path); got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestLayout_DestPath(t *testing.T) {
	l := Layout{
		SourceDir:  filepath.FromSlash("/photos/src"),
		OutputDir:  filepath.FromSlash("/photos/jpeg"),
		ArchiveDir: filepath.FromSlash("/photos/archive"),
	}

	tests := []struct {
		name    string
		src     string
		want    string
		wantErr bool
	}{
		{"top level", "/photos/src/img001.HEIC", "/photos/jpeg/img001.jpg", false},
		{"nested", "/photos/src/2021/05/img002.heic", "/photos/jpeg/2021/05/img002.jpg", false},
		{"outside source", "/other/img.heic", "", true},
		{"source root itself", "/photos/src", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.DestPath(filepath.FromSlash(tt.src))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DestPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != filepath.FromSlash(tt.want) {
				t.Errorf("DestPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLayout_DestPathIsDeterministic(t *testing.T) {
	l := Layout{SourceDir: "/s", OutputDir: "/o"}
	a, _ := l.DestPath("/s/x/y.HEIC")
	b, _ := l.DestPath("/s/x/y.HEIC")
	if a != b {
		t.Errorf("DestPath() not deterministic: %q vs %q", a, b)
	}
}

func TestLayout_ArchivePath(t *testing.T) {
	l := Layout{SourceDir: "/s", OutputDir: "/o", ArchiveDir: "/a"}

	got, err := l.ArchivePath(filepath.FromSlash("/s/2021/img.HEIC"))
	if err != nil {
		t.Fatalf("ArchivePath() error = %v", err)
	}
	if want := filepath.FromSlash("/a/2021/img.HEIC"); got != want {
		t.Errorf("ArchivePath() = %q, want %q", got, want)
	}

	l.ArchiveDir = ""
	if _, err := l.ArchivePath("/s/img.HEIC"); err == nil {
		t.Error("ArchivePath() without archive dir should fail")
	}
}

func TestFile_WithCreationDate(t *testing.T) {
	f := File{Path: "/s/a.heic", Format: FormatHEIC}
	d := time.Date(2021, 5, 2, 10, 0, 0, 0, time.UTC)

	g := f.WithCreationDate(d)
	if f.HasCreationDate() {
		t.Error("original snapshot must stay unchanged")
	}
	if !g.HasCreationDate() || !g.CreationDate.Equal(d) {
		t.Errorf("CreationDate = %v, want %v", g.CreationDate, d)
	}
}

func TestPathKey(t *testing.T) {
	l := Layout{SourceDir: "/s", OutputDir: "/o"}
	a, _ := l.DestPath(filepath.FromSlash("/s/2021/IMG_0001.HEIC"))
	b, _ := l.DestPath(filepath.FromSlash("/s/2021/IMG_0001.heif"))
	c, _ := l.DestPath(filepath.FromSlash("/s/2021/img_0001.heic"))
	if PathKey(a) != PathKey(b) || PathKey(a) != PathKey(c) {
		t.Errorf("keys differ: %q %q %q", PathKey(a), PathKey(b), PathKey(c))
	}

	d, _ := l.DestPath(filepath.FromSlash("/s/2021/IMG_0002.HEIC"))
	if PathKey(a) == PathKey(d) {
		t.Error("different names must have different keys")
	}
}
