package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/artemshloyda/photoledger/internal/media"
)

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relPaths(files []media.File) []string {
	var out []string
	for _, f := range files {
		out = append(out, filepath.ToSlash(f.RelPath))
	}
	sort.Strings(out)
	return out
}

func TestScanner_Collect(t *testing.T) {
	root := makeTree(t,
		"2021/05/img001.HEIC",
		"2021/05/img001.jpg",
		"2021/05/._img001.HEIC",
		"notes.txt",
		".photoledger/ledger.yaml",
		".hidden/img.heic",
		".dtrash/old.heic",
		"Trash/old.heic",
	)

	s := New(Options{Exclude: func(name string) bool { return strings.EqualFold(name, "trash") }})
	files, err := s.Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	got := relPaths(files)
	want := []string{"2021/05/img001.HEIC", "2021/05/img001.jpg"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("Path %q is not absolute", f.Path)
		}
		if f.Size != 4 {
			t.Errorf("Size = %d, want 4", f.Size)
		}
	}
}

func TestScanner_WithFormats(t *testing.T) {
	root := makeTree(t, "a.heic", "b.HEIF", "c.jpg", "d.png")

	s := New(Options{}).WithFormats(media.FormatHEIC)
	files, err := s.Collect(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if got := relPaths(files); len(got) != 2 || got[0] != "a.heic" || got[1] != "b.HEIF" {
		t.Errorf("got %v", got)
	}

	n, err := s.CountFiles(context.Background(), root)
	if err != nil || n != 2 {
		t.Errorf("CountFiles() = %d, %v", n, err)
	}
}

func TestScanner_MissingRoot(t *testing.T) {
	_, err := New(Options{}).Collect(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestScanner_Cancelled(t *testing.T) {
	root := makeTree(t, "a.heic", "b.heic")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(Options{}).Collect(ctx, root); err == nil {
		t.Error("expected context error")
	}
}

func TestScanner_Inventory(t *testing.T) {
	root := makeTree(t, "a.heic", "b.HEIC", "c.jpg", "d.png", "sub/e.mov", "README")

	inv, err := New(Options{}).Inventory(context.Background(), root)
	if err != nil {
		t.Fatalf("Inventory() error = %v", err)
	}

	if inv.TotalFiles != 6 {
		t.Errorf("TotalFiles = %d, want 6", inv.TotalFiles)
	}
	if inv.TotalBytes != 24 {
		t.Errorf("TotalBytes = %d, want 24", inv.TotalBytes)
	}
	if inv.Extensions[0].Ext != ".heic" || inv.Extensions[0].Count != 2 {
		t.Errorf("top extension = %+v, want .heic x2", inv.Extensions[0])
	}
	if inv.Count(media.FormatHEIC) != 2 || inv.Count(media.FormatJPEG) != 1 {
		t.Errorf("Count() heic=%d jpeg=%d", inv.Count(media.FormatHEIC), inv.Count(media.FormatJPEG))
	}

	want := []string{"README", "d.png", filepath.Join("sub", "e.mov")}
	if len(inv.NonMedia) != len(want) {
		t.Fatalf("NonMedia = %v, want %v", inv.NonMedia, want)
	}
	for i := range want {
		if inv.NonMedia[i] != want[i] {
			t.Errorf("NonMedia[%d] = %q, want %q", i, inv.NonMedia[i], want[i])
		}
	}
}
