package worker

import (
	"context"
	"sync"
)

// estimateFactor - во сколько раз декодированный HEIC больше файла на диске
// (грубая оценка для vips).
const estimateFactor = 3

// MemoryLimiter ограничивает суммарную оценку памяти одновременно
// конвертируемых файлов. Конвертация идёт во внешнем процессе vips,
// поэтому учитываются только резервирования, а не память текущего процесса.
type MemoryLimiter struct {
	// maxMemoryBytes - максимальное использование памяти в байтах.
	maxMemoryBytes uint64

	// mu защищает currentUsage и changed.
	mu sync.Mutex

	// currentUsage - текущее зарезервированное использование памяти.
	currentUsage uint64

	// changed закрывается при каждом освобождении памяти.
	changed chan struct{}

	// enabled - включено ли ограничение.
	enabled bool
}

// NewMemoryLimiter создаёт новый MemoryLimiter.
// maxMemoryMB - ограничение в мегабайтах (0 = без ограничения).
func NewMemoryLimiter(maxMemoryMB int) *MemoryLimiter {
	if maxMemoryMB <= 0 {
		return &MemoryLimiter{enabled: false}
	}

	return &MemoryLimiter{
		maxMemoryBytes: uint64(maxMemoryMB) * 1024 * 1024,
		changed:        make(chan struct{}),
		enabled:        true,
	}
}

// Acquire резервирует память для обработки файла размером fileSize.
// Блокирует выполнение, пока не будет достаточно памяти. Файл больше
// лимита пропускается, когда других резервирований нет.
// Возвращает функцию для освобождения памяти.
func (ml *MemoryLimiter) Acquire(ctx context.Context, fileSize int64) (release func(), err error) {
	if !ml.enabled {
		return func() {}, nil
	}

	estimated := uint64(max(fileSize, 0)) * estimateFactor

	for {
		ml.mu.Lock()
		if ml.currentUsage == 0 || ml.currentUsage+estimated <= ml.maxMemoryBytes {
			ml.currentUsage += estimated
			ml.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() { ml.release(estimated) })
			}, nil
		}
		wait := ml.changed
		ml.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

func (ml *MemoryLimiter) release(n uint64) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.currentUsage -= n
	close(ml.changed)
	ml.changed = make(chan struct{})
}

// IsEnabled возвращает true если ограничение включено.
func (ml *MemoryLimiter) IsEnabled() bool {
	return ml.enabled
}

// CurrentUsage возвращает текущее зарезервированное использование памяти.
func (ml *MemoryLimiter) CurrentUsage() uint64 {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.currentUsage
}

// MaxMemory возвращает максимальное ограничение памяти.
func (ml *MemoryLimiter) MaxMemory() uint64 {
	return ml.maxMemoryBytes
}
