package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestBar_Counters(t *testing.T) {
	var buf bytes.Buffer
	b := New(Options{Total: 3, Writer: &buf})

	b.Increment()
	b.IncrementSkipped()
	b.IncrementFailed()
	b.Finish()

	done, skipped, failed := b.Stats()
	if done != 1 || skipped != 1 || failed != 1 {
		t.Errorf("Stats() = %d, %d, %d", done, skipped, failed)
	}
	if buf.Len() == 0 {
		t.Error("bar should render to writer")
	}
}

func TestBar_Disabled(t *testing.T) {
	var buf bytes.Buffer
	b := New(Options{Total: 3, Disabled: true, Writer: &buf})
	b.Increment()
	b.Finish()

	if !b.IsDisabled() {
		t.Error("IsDisabled() = false")
	}
	if buf.Len() != 0 {
		t.Errorf("disabled bar wrote %q", buf.String())
	}
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinterTo(&out, &errOut, false)

	p.Info("✅ готово: %d", 3)
	p.Detail("подробности")
	p.Warn("осторожно")
	p.Error("%s: сломан", "a.heic")

	if out.String() != "✅ готово: 3\n" {
		t.Errorf("out = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "⚠️  осторожно\n") || !strings.Contains(errOut.String(), "❌ a.heic: сломан\n") {
		t.Errorf("errOut = %q", errOut.String())
	}

	out.Reset()
	NewPrinterTo(&out, &errOut, true).Detail("подробности")
	if out.String() != "подробности\n" {
		t.Errorf("verbose Detail = %q", out.String())
	}
}

func TestPrinter_ThroughBar(t *testing.T) {
	var out, barOut bytes.Buffer
	p := NewPrinterTo(&out, &out, false)
	p.Attach(New(Options{Total: 2, Writer: &barOut}))

	p.Info("сообщение")
	if !strings.Contains(out.String(), "сообщение\n") {
		t.Errorf("out = %q", out.String())
	}
}
