package organize

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/media"
)

type fakeDates map[string]time.Time

func (d fakeDates) ReadCreationDate(path string) (*time.Time, error) {
	if t, ok := d[path]; ok {
		return &t, nil
	}
	return nil, nil
}

func mk(t *testing.T, root, rel string) media.File {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return media.File{Path: path, RelPath: rel, Format: media.DetectFormat(path), Size: 1}
}

func feed(files ...media.File) <-chan media.File {
	ch := make(chan media.File, len(files))
	for _, f := range files {
		ch <- f
	}
	close(ch)
	return ch
}

func TestIsDateFolder(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"2021/05/a.jpg", true},
		{"2021/05/sub/a.jpg", true},
		{"2021/5/a.jpg", false},
		{"21/05/a.jpg", false},
		{"2021/a.jpg", false},
		{"a.jpg", false},
		{"Trip/2021/05/a.jpg", false},
	}
	for _, tt := range tests {
		if got := IsDateFolder(filepath.FromSlash(tt.rel)); got != tt.want {
			t.Errorf("IsDateFolder(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestEngine_Run(t *testing.T) {
	root := t.TempDir()
	dated := mk(t, root, "inbox/img001.HEIC")
	noDate := mk(t, root, "inbox/img002.HEIC")
	done := mk(t, root, "2020/01/old.jpg")
	clash := mk(t, root, "clash.jpg")
	mk(t, root, "2019/12/clash.jpg")
	other := mk(t, root, "notes.txt")

	dates := fakeDates{
		dated.Path: time.Date(2021, 5, 2, 10, 0, 0, 0, time.Local),
		clash.Path: time.Date(2019, 12, 31, 0, 0, 0, 0, time.Local),
		done.Path:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local),
	}

	e := &Engine{Root: root, Dates: dates}
	res, err := e.Run(context.Background(), feed(dated, noDate, done, clash, other))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := map[string]Disposition{
		dated.Path:  Moved,
		noDate.Path: NoDate,
		done.Path:   AlreadyOrganized,
		clash.Path:  TargetExists,
	}
	if len(res.Outcomes) != len(want) {
		t.Fatalf("outcomes = %+v", res.Outcomes)
	}
	for _, o := range res.Outcomes {
		if o.Disposition != want[o.Path] {
			t.Errorf("%s: %s, want %s", o.Path, o.Disposition, want[o.Path])
		}
	}

	if _, err := os.Stat(filepath.Join(root, "2021", "05", "img001.HEIC")); err != nil {
		t.Error("dated file must be moved to 2021/05")
	}
	if _, err := os.Stat(clash.Path); err != nil {
		t.Error("file with existing target must stay in place")
	}
}

func TestEngine_DryRunAndTracked(t *testing.T) {
	root := t.TempDir()
	a := mk(t, root, "a.HEIC")
	b := mk(t, root, "b.jpg")
	dates := fakeDates{
		a.Path: time.Date(2021, 5, 2, 0, 0, 0, 0, time.Local),
		b.Path: time.Date(2022, 7, 3, 0, 0, 0, 0, time.Local),
	}

	tr := ledger.Open(filepath.Join(t.TempDir(), "ledger.yaml"))
	if err := tr.Upsert(ledger.Record{Source: a.Path, Status: ledger.StatusPending}); err != nil {
		t.Fatal(err)
	}

	e := &Engine{Root: root, Dates: dates, Tracker: tr, DryRun: true}
	res, err := e.Run(context.Background(), feed(a, b))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count(Tracked) != 1 || res.Count(WouldMove) != 1 {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}
	if _, err := os.Stat(b.Path); err != nil {
		t.Error("dry-run must not move files")
	}
}

func TestAnalyze(t *testing.T) {
	root := "/photos"
	files := []media.File{
		{Path: "/photos/2021/05/a.jpg", Format: media.FormatJPEG},
		{Path: "/photos/2021/06/b.HEIC", Format: media.FormatHEIC},
		{Path: "/photos/2019/01/c.jpg", Format: media.FormatJPEG},
		{Path: "/photos/inbox/d.jpg", Format: media.FormatJPEG},
		{Path: "/photos/notes.txt", Format: media.FormatOther},
	}

	a := Analyze(root, files)
	if a.Total != 4 || a.Organized != 3 {
		t.Errorf("Total=%d Organized=%d", a.Total, a.Organized)
	}
	if a.Percent() != 75 {
		t.Errorf("Percent() = %v", a.Percent())
	}
	if years := a.Years(); len(years) != 2 || years[0] != "2019" || years[1] != "2021" {
		t.Errorf("Years() = %v", years)
	}
	if a.Patterns["2021/05"] != 1 || len(a.Unorganized) != 1 {
		t.Errorf("analysis = %+v", a)
	}
}

func TestEngine_KeepsLedgerDestinations(t *testing.T) {
	// --out внутри --src: JPEG из журнала лежат в том же дереве
	root := t.TempDir()
	src := mk(t, root, "inbox/IMG_0001.HEIC")
	converted := mk(t, root, "Converted/inbox/IMG_0001.jpg")
	stray := mk(t, root, "Converted/inbox/IMG_0009.jpg")
	date := time.Date(2021, 6, 15, 0, 0, 0, 0, time.Local)
	dates := fakeDates{src.Path: date, converted.Path: date, stray.Path: date}

	tr := ledger.Open(filepath.Join(t.TempDir(), "ledger.yaml"))
	err := tr.Upsert(ledger.Record{Source: src.Path, Destination: converted.Path, Status: ledger.StatusConverted})
	if err != nil {
		t.Fatal(err)
	}

	e := &Engine{Root: root, Dates: dates, Tracker: tr}
	res, err := e.Run(context.Background(), feed(src, converted, stray))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]Disposition{
		src.Path:       Tracked,
		converted.Path: Tracked,
		stray.Path:     Moved,
	}
	for _, o := range res.Outcomes {
		if o.Disposition != want[o.Path] {
			t.Errorf("%s: %s, want %s", o.Path, o.Disposition, want[o.Path])
		}
	}
	if _, err := os.Stat(converted.Path); err != nil {
		t.Error("JPEG recorded in the ledger must stay in place")
	}
}

func TestEngine_DryRunReportsOccupiedTarget(t *testing.T) {
	root := t.TempDir()
	clash := mk(t, root, "clash.jpg")
	mk(t, root, "2019/12/clash.jpg")
	free := mk(t, root, "free.jpg")
	dates := fakeDates{
		clash.Path: time.Date(2019, 12, 31, 0, 0, 0, 0, time.Local),
		free.Path:  time.Date(2019, 12, 31, 0, 0, 0, 0, time.Local),
	}

	e := &Engine{Root: root, Dates: dates, DryRun: true}
	res, err := e.Run(context.Background(), feed(clash, free))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count(TargetExists) != 1 || res.Count(WouldMove) != 1 {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}
}

func TestEngine_UsesKnownCreationDate(t *testing.T) {
	root := t.TempDir()
	f := mk(t, root, "a.jpg").WithCreationDate(time.Date(2018, 3, 4, 0, 0, 0, 0, time.Local))

	// fakeDates пустой: дата берётся из снимка файла
	e := &Engine{Root: root, Dates: fakeDates{}}
	res, err := e.Run(context.Background(), feed(f))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count(Moved) != 1 {
		t.Fatalf("outcomes = %+v", res.Outcomes)
	}
	if _, err := os.Stat(filepath.Join(root, "2018", "03", "a.jpg")); err != nil {
		t.Error("file must be moved to 2018/03")
	}
}
