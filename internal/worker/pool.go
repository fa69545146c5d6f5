// Package worker содержит пул воркеров для параллельной обработки файлов.
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/artemshloyda/photoledger/internal/media"
)

// Task обрабатывает один файл. Ошибка учитывается в статистике как Failed.
type Task func(ctx context.Context, file media.File) error

// Stats содержит статистику обработки.
type Stats struct {
	// Total - количество файлов, взятых в работу.
	Total int64

	// Processed - файлы, обработанные без ошибки.
	Processed int64

	// Failed - файлы, задача для которых вернула ошибку.
	Failed int64

	// InputBytes - суммарный размер взятых в работу файлов.
	InputBytes int64
}

// Pool управляет пулом воркеров.
type Pool struct {
	workers       int
	memoryLimiter *MemoryLimiter
	onInterrupted func(file media.File, err error)

	total      atomic.Int64
	processed  atomic.Int64
	failed     atomic.Int64
	inputBytes atomic.Int64
}

// New создаёт пул из workers воркеров с ограничением памяти maxMemoryMB
// (0 = без ограничения).
func New(workers, maxMemoryMB int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers:       workers,
		memoryLimiter: NewMemoryLimiter(maxMemoryMB),
	}
}

// OnInterrupted задаёт обработчик файла, который взят из канала, но не
// передан в Task: ctx отменён, пока воркер ждал памяти. Вызывается из
// горутины воркера.
func (p *Pool) OnInterrupted(fn func(file media.File, err error)) *Pool {
	p.onInterrupted = fn
	return p
}

// Workers возвращает количество воркеров.
func (p *Pool) Workers() int {
	return p.workers
}

// Process запускает task для каждого файла из канала и ждёт завершения.
// Воркеры выходят, когда канал закрыт или ctx отменён; файлы, оставшиеся
// в канале после отмены, не вычитываются (производитель должен
// завершаться по тому же ctx).
func (p *Pool) Process(ctx context.Context, files <-chan media.File, task Task) Stats {
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, files, task)
		}()
	}

	wg.Wait()
	return p.Stats()
}

// worker обрабатывает файлы из канала.
func (p *Pool) worker(ctx context.Context, files <-chan media.File, task Task) {
	for {
		select {
		case <-ctx.Done():
			return
		case file, ok := <-files:
			if !ok {
				return
			}
			p.run(ctx, file, task)
		}
	}
}

func (p *Pool) run(ctx context.Context, file media.File, task Task) {
	p.total.Add(1)
	p.inputBytes.Add(file.Size)

	// Ограничение памяти: ждём, если превышен лимит
	if p.memoryLimiter.IsEnabled() {
		release, err := p.memoryLimiter.Acquire(ctx, file.Size)
		if err != nil {
			p.failed.Add(1)
			if p.onInterrupted != nil {
				p.onInterrupted(file, err)
			}
			return
		}
		defer release()
	}

	if err := task(ctx, file); err != nil {
		p.failed.Add(1)
		return
	}
	p.processed.Add(1)
}

// Stats возвращает текущую статистику.
func (p *Pool) Stats() Stats {
	return Stats{
		Total:      p.total.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		InputBytes: p.inputBytes.Load(),
	}
}

/*
Возможные расширения:
- Rate limiting
- Приоритет маленьких файлов
*/
