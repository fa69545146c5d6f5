package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artemshloyda/photoledger/internal/fsx"
	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/reconcile"
	"github.com/artemshloyda/photoledger/internal/scanner"
)

type fixture struct {
	layout  media.Layout
	tracker *ledger.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		layout: media.Layout{
			SourceDir:  filepath.Join(root, "src"),
			OutputDir:  filepath.Join(root, "out"),
			ArchiveDir: filepath.Join(root, "archive"),
		},
		tracker: ledger.Open(filepath.Join(root, "state", "ledger.yaml")),
	}
	if err := f.tracker.Load(); err != nil {
		t.Fatal(err)
	}
	return f
}

func write(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

// converted создаёт исходник, JPEG (если withJPEG) и запись converted.
func (f *fixture) converted(t *testing.T, rel string, withJPEG bool) ledger.Record {
	t.Helper()
	src := filepath.Join(f.layout.SourceDir, rel)
	dest, err := f.layout.DestPath(src)
	if err != nil {
		t.Fatal(err)
	}
	write(t, src, "heic")
	if withJPEG {
		write(t, dest, "jpeg")
	}
	rec := ledger.Record{Source: src, Destination: dest, Status: ledger.StatusConverted}
	if err := f.tracker.Upsert(rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func (f *fixture) reconcile(t *testing.T, runID string) *reconcile.Report {
	t.Helper()
	snap, err := reconcile.Capture(context.Background(), scanner.New(scanner.Options{}), f.layout)
	if err != nil {
		t.Fatal(err)
	}
	return reconcile.Reconcile(f.tracker.Snapshot(), snap, f.layout, runID)
}

func (f *fixture) engine(runID string) *Engine {
	return &Engine{Tracker: f.tracker, Layout: f.layout, RunID: runID}
}

func outcome(t *testing.T, res *Result, src string) Outcome {
	t.Helper()
	for _, o := range res.Outcomes {
		if o.Source == src {
			return o
		}
	}
	t.Fatalf("no outcome for %s", src)
	return Outcome{}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestEngine_ArchivesConfirmed(t *testing.T) {
	f := newFixture(t)
	rec := f.converted(t, "2021/05/img001.HEIC", true)

	res, err := f.engine("run-1").Run(context.Background(), f.reconcile(t, "run-1"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	o := outcome(t, res, rec.Source)
	if o.Disposition != Archived {
		t.Fatalf("disposition = %s, err = %v", o.Disposition, o.Err)
	}
	want := filepath.Join(f.layout.ArchiveDir, "2021", "05", "img001.HEIC")
	if o.ArchivePath != want {
		t.Errorf("ArchivePath = %s, want %s", o.ArchivePath, want)
	}
	if exists(rec.Source) || !exists(want) {
		t.Error("source must be moved into the archive")
	}

	reloaded := ledger.Open(f.tracker.Path())
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	got, _ := reloaded.Get(rec.Source)
	if got.Status != ledger.StatusArchived || got.ArchivePath != want || got.ArchivedAt == nil {
		t.Errorf("record = %+v", got)
	}
}

func TestEngine_RefusesStaleConversion(t *testing.T) {
	f := newFixture(t)
	// img003: журнал говорит converted, JPEG удалён
	rec := f.converted(t, "img003.HEIC", false)

	res, err := f.engine("run-1").Run(context.Background(), f.reconcile(t, "run-1"))
	if err != nil {
		t.Fatal(err)
	}

	o := outcome(t, res, rec.Source)
	if o.Disposition != Unconfirmed || !IsUnconfirmed(o.Err) {
		t.Fatalf("outcome = %+v, want UnconfirmedConversionError", o)
	}
	if !exists(rec.Source) {
		t.Error("source must stay in place")
	}
	if got, _ := f.tracker.Get(rec.Source); got.Status != ledger.StatusConverted {
		t.Errorf("status = %s, want converted", got.Status)
	}
}

func TestEngine_RefusesWithoutCurrentReconcile(t *testing.T) {
	tests := []struct {
		name string
		rep  func(t *testing.T, f *fixture) *reconcile.Report
	}{
		{"no report", func(*testing.T, *fixture) *reconcile.Report { return nil }},
		{"other run", func(t *testing.T, f *fixture) *reconcile.Report { return f.reconcile(t, "old-run") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.converted(t, "img.HEIC", true)

			res, err := f.engine("run-2").Run(context.Background(), tt.rep(t, f))
			if err != nil {
				t.Fatal(err)
			}
			if o := outcome(t, res, rec.Source); !IsUnconfirmed(o.Err) {
				t.Errorf("err = %v, want UnconfirmedConversionError", o.Err)
			}
			if !exists(rec.Source) {
				t.Error("source must stay in place")
			}
		})
	}
}

func TestEngine_NeverTouchesOrphansOrUnconverted(t *testing.T) {
	f := newFixture(t)
	ok := f.converted(t, "img001.HEIC", true)

	pendingSrc := filepath.Join(f.layout.SourceDir, "img005.HEIC")
	write(t, pendingSrc, "heic")
	_ = f.tracker.Upsert(ledger.Record{Source: pendingSrc, Status: ledger.StatusPending})

	noRecord := filepath.Join(f.layout.SourceDir, "img002.HEIC")
	write(t, noRecord, "heic")

	orphan := filepath.Join(f.layout.OutputDir, "img004.jpg")
	write(t, orphan, "jpeg")

	rep := f.reconcile(t, "run-1")
	res, err := f.engine("run-1").Run(context.Background(), rep)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Outcomes) != 1 || res.Outcomes[0].Source != ok.Source {
		t.Errorf("only converted records are considered: %+v", res.Outcomes)
	}
	for _, p := range []string{pendingSrc, noRecord, orphan} {
		if !exists(p) {
			t.Errorf("%s must not be touched", p)
		}
	}

	// archived ⊆ reconciled
	for rec := range f.tracker.Query(ledger.WithStatus(ledger.StatusArchived)) {
		if e, _ := rep.Entry(rec.Source); e.Class != reconcile.Reconciled {
			t.Errorf("%s archived but classified %s", rec.Source, e.Class)
		}
	}
}

func TestEngine_CrossDeviceLeavesSource(t *testing.T) {
	f := newFixture(t)
	rec := f.converted(t, "img.HEIC", true)

	e := f.engine("run-1")
	e.move = func(src, dst string) error {
		return &fsx.CrossDeviceError{Src: src, Dst: dst, Err: errors.New("invalid cross-device link")}
	}

	res, err := e.Run(context.Background(), f.reconcile(t, "run-1"))
	if err != nil {
		t.Fatal(err)
	}
	o := outcome(t, res, rec.Source)
	if o.Disposition != MoveFailed || !fsx.IsCrossDevice(o.Err) {
		t.Fatalf("outcome = %+v", o)
	}
	if !res.HasFailures() {
		t.Error("HasFailures() = false")
	}
	if got, _ := f.tracker.Get(rec.Source); got.Status != ledger.StatusConverted {
		t.Errorf("status = %s, want converted", got.Status)
	}
	if !exists(rec.Source) {
		t.Error("source must stay in place")
	}
}

func TestEngine_TargetExists(t *testing.T) {
	f := newFixture(t)
	rec := f.converted(t, "img.HEIC", true)
	write(t, filepath.Join(f.layout.ArchiveDir, "img.HEIC"), "other")

	res, err := f.engine("run-1").Run(context.Background(), f.reconcile(t, "run-1"))
	if err != nil {
		t.Fatal(err)
	}
	if o := outcome(t, res, rec.Source); !fsx.IsTargetExists(o.Err) {
		t.Errorf("err = %v, want TargetExistsError", o.Err)
	}
	if !exists(rec.Source) {
		t.Error("source must stay in place")
	}
}

func TestEngine_DryRun(t *testing.T) {
	f := newFixture(t)
	rec := f.converted(t, "img.HEIC", true)
	f.tracker.SetReadOnly(true)

	e := f.engine("run-1")
	e.DryRun = true
	res, err := e.Run(context.Background(), f.reconcile(t, "run-1"))
	if err != nil {
		t.Fatal(err)
	}
	if outcome(t, res, rec.Source).Disposition != WouldArchive {
		t.Error("want would_archive")
	}
	if !exists(rec.Source) || exists(f.layout.ArchiveDir) {
		t.Error("dry-run must not move files")
	}
}

func TestEngine_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	f.converted(t, "img.HEIC", true)

	if _, err := f.engine("run-1").Run(context.Background(), f.reconcile(t, "run-1")); err != nil {
		t.Fatal(err)
	}
	res, err := f.engine("run-2").Run(context.Background(), f.reconcile(t, "run-2"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outcomes) != 0 {
		t.Errorf("second run outcomes = %+v", res.Outcomes)
	}
}

func TestEngine_RequiresArchiveDir(t *testing.T) {
	f := newFixture(t)
	e := f.engine("run-1")
	e.Layout.ArchiveDir = ""
	if _, err := e.Run(context.Background(), nil); err == nil {
		t.Error("expected error without archive dir")
	}
}

func TestEngine_Restore(t *testing.T) {
	f := newFixture(t)
	rec := f.converted(t, "2021/IMG001.HEIC", true)
	if _, err := f.engine("run-1").Run(context.Background(), f.reconcile(t, "run-1")); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine("run-2").Restore(context.Background(), "img001.heic")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.Count(Restored) != 1 {
		t.Fatalf("outcomes = %+v", res.Outcomes)
	}
	if !exists(rec.Source) {
		t.Error("source must be back in place")
	}
	if _, ok := f.tracker.Get(rec.Source); ok {
		t.Error("record must be removed after restore")
	}

	// след архивации остаётся в истории и переживает перечитывание
	reloaded := ledger.Open(f.tracker.Path())
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	history := reloaded.History()
	if len(history) != 2 {
		t.Fatalf("history = %+v, want archived and restored", history)
	}
	if history[0].Action != ledger.HistoryArchived || history[1].Action != ledger.HistoryRestored {
		t.Errorf("actions = %s, %s", history[0].Action, history[1].Action)
	}
	for _, ev := range history {
		if ev.Source != rec.Source || ev.ArchivePath == "" {
			t.Errorf("event = %+v", ev)
		}
	}
}

func TestEngine_RestoreErrors(t *testing.T) {
	f := newFixture(t)
	a := f.converted(t, "a/img.HEIC", true)
	f.converted(t, "b/img.HEIC", true)
	if _, err := f.engine("run-1").Run(context.Background(), f.reconcile(t, "run-1")); err != nil {
		t.Fatal(err)
	}
	e := f.engine("run-2")

	var nf *NotFoundError
	if _, err := e.Restore(context.Background(), "missing.HEIC"); !errors.As(err, &nf) {
		t.Errorf("err = %v, want NotFoundError", err)
	}

	var amb *AmbiguousError
	if _, err := e.Restore(context.Background(), "img.heic"); !errors.As(err, &amb) || len(amb.Candidates) != 2 {
		t.Errorf("err = %v, want AmbiguousError with 2 candidates", err)
	}

	res, err := e.Restore(context.Background(), filepath.Join("a", "img.HEIC"))
	if err != nil || res.Count(Restored) != 1 || !exists(a.Source) {
		t.Errorf("restore by relative path: %+v, %v", res, err)
	}
}

func TestEngine_RestoreConflict(t *testing.T) {
	f := newFixture(t)
	rec := f.converted(t, "img.HEIC", true)
	e := f.engine("run-1")
	e.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := e.Run(context.Background(), f.reconcile(t, "run-1")); err != nil {
		t.Fatal(err)
	}
	// на исходном месте уже лежит другой файл
	write(t, rec.Source, "new heic")

	res, err := f.engine("run-2").Restore(context.Background(), "img.HEIC")
	if err != nil {
		t.Fatal(err)
	}
	if res.Count(RestoreFailed) != 1 {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}
	if got, _ := f.tracker.Get(rec.Source); got.Status != ledger.StatusArchived {
		t.Error("record must stay archived when restore fails")
	}
}
