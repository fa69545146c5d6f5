package reconcile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/scanner"
)

// Snapshot - состояние файловой системы на момент сверки.
type Snapshot struct {
	// Sources - HEIC-файлы в дереве исходников.
	Sources []media.File

	// Outputs - JPEG-файлы в выходном дереве.
	Outputs []media.File

	// TakenAt - время снимка.
	TakenAt time.Time
}

// Capture сканирует деревья исходников и результатов.
// Отсутствующее выходное дерево - пустой список, а не ошибка.
func Capture(ctx context.Context, sc *scanner.Scanner, layout media.Layout) (Snapshot, error) {
	snap := Snapshot{TakenAt: time.Now()}

	sources, err := sc.WithFormats(media.FormatHEIC).Collect(ctx, layout.SourceDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("сканирование исходников: %w", err)
	}
	snap.Sources = sources

	if _, err := os.Stat(layout.OutputDir); os.IsNotExist(err) {
		return snap, nil
	}
	outputs, err := sc.WithFormats(media.FormatJPEG).Collect(ctx, layout.OutputDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("сканирование результатов: %w", err)
	}
	snap.Outputs = outputs

	return snap, nil
}
