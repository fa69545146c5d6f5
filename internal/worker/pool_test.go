package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artemshloyda/photoledger/internal/media"
)

func feed(files ...media.File) <-chan media.File {
	ch := make(chan media.File, len(files))
	for _, f := range files {
		ch <- f
	}
	close(ch)
	return ch
}

func TestPool_ProcessAll(t *testing.T) {
	var files []media.File
	for i := 0; i < 20; i++ {
		files = append(files, media.File{Path: fmt.Sprintf("/src/img%03d.heic", i), Size: 10})
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	stats := New(4, 0).Process(context.Background(), feed(files...), func(_ context.Context, f media.File) error {
		mu.Lock()
		seen[f.Path]++
		mu.Unlock()
		if f.Path == "/src/img007.heic" {
			return errors.New("boom")
		}
		return nil
	})

	if stats.Total != 20 || stats.Processed != 19 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.InputBytes != 200 {
		t.Errorf("InputBytes = %d, want 200", stats.InputBytes)
	}
	for _, f := range files {
		if seen[f.Path] != 1 {
			t.Errorf("%s processed %d times", f.Path, seen[f.Path])
		}
	}
}

func TestPool_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	files := make(chan media.File)
	done := make(chan Stats)

	go func() {
		done <- New(2, 0).Process(ctx, files, func(context.Context, media.File) error { return nil })
	}()

	files <- media.File{Path: "/a.heic"}
	cancel()

	select {
	case st := <-done:
		if st.Total != 1 {
			t.Errorf("Total = %d, want 1", st.Total)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}

func TestMemoryLimiter_Disabled(t *testing.T) {
	ml := NewMemoryLimiter(0)
	if ml.IsEnabled() {
		t.Fatal("limiter should be disabled")
	}
	release, err := ml.Acquire(context.Background(), 1<<40)
	if err != nil {
		t.Fatal(err)
	}
	release()
}

func TestMemoryLimiter_BlocksUntilRelease(t *testing.T) {
	ml := NewMemoryLimiter(1) // 1 MB
	const size = 200 * 1024   // оценка 600 KB

	release1, err := ml.Acquire(context.Background(), size)
	if err != nil {
		t.Fatal(err)
	}

	var acquired atomic.Bool
	go func() {
		release2, err := ml.Acquire(context.Background(), size)
		if err == nil {
			acquired.Store(true)
			release2()
		}
	}()

	time.Sleep(50 * time.Millisecond)
	if acquired.Load() {
		t.Fatal("second acquire should wait")
	}

	release1()
	release1() // повторный вызов безопасен

	deadline := time.Now().Add(2 * time.Second)
	for !acquired.Load() {
		if time.Now().After(deadline) {
			t.Fatal("second acquire did not proceed after release")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMemoryLimiter_OversizedFileRunsAlone(t *testing.T) {
	ml := NewMemoryLimiter(1)
	release, err := ml.Acquire(context.Background(), 10<<20)
	if err != nil {
		t.Fatalf("oversized file must not deadlock: %v", err)
	}
	if ml.CurrentUsage() != 30<<20 {
		t.Errorf("CurrentUsage = %d", ml.CurrentUsage())
	}
	release()
	if ml.CurrentUsage() != 0 {
		t.Errorf("CurrentUsage after release = %d", ml.CurrentUsage())
	}
}

func TestMemoryLimiter_CancelWhileWaiting(t *testing.T) {
	ml := NewMemoryLimiter(1)
	release, _ := ml.Acquire(context.Background(), 300*1024)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := ml.Acquire(ctx, 300*1024); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestPool_InterruptedWhileWaitingForMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 2)
	var (
		mu          sync.Mutex
		interrupted []string
	)
	pool := New(2, 1).OnInterrupted(func(f media.File, err error) {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want Canceled", err)
		}
		mu.Lock()
		interrupted = append(interrupted, f.Path)
		mu.Unlock()
	})

	files := feed(
		media.File{Path: "/a.heic", Size: 300 << 10},
		media.File{Path: "/b.heic", Size: 300 << 10},
	)
	go func() {
		<-started
		// второй воркер успевает взять файл и ждёт памяти
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	stats := pool.Process(ctx, files, func(ctx context.Context, _ media.File) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	})

	if stats.Total != 2 || stats.Failed != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if len(interrupted) != 1 {
		t.Errorf("interrupted = %v, want exactly one file", interrupted)
	}
}
