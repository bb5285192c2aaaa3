package tasks

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitBlocksUntilAllJobsFinish(t *testing.T) {
	g := New("test")
	var ran atomic.Int32
	release := make(chan struct{})

	for i := 0; i < 5; i++ {
		g.Go("job", func() error {
			<-release
			ran.Add(1)
			return nil
		})
	}
	if s := g.Stats(); s.InFlight != 5 {
		t.Fatalf("expected 5 in flight, got %+v", s)
	}
	close(release)
	g.Wait()

	if ran.Load() != 5 {
		t.Fatalf("expected 5 jobs, ran %d", ran.Load())
	}
	if s := g.Stats(); s.InFlight != 0 || s.Done != 5 || s.Failed != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestErrorsAndPanicsAreContained(t *testing.T) {
	g := New("test")
	var after atomic.Bool

	g.Go("boom", func() error { panic("kaboom") })
	g.Go("err", func() error { return errors.New("falhou") })
	g.Go("ok", func() error { after.Store(true); return nil })
	g.Wait()

	if !after.Load() {
		t.Fatal("healthy job should still run")
	}
	if s := g.Stats(); s.Failed != 2 || s.Done != 3 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestGroupIsReusableAfterWait(t *testing.T) {
	g := New("test")
	g.Go("a", func() error { return nil })
	g.Wait()
	g.Go("b", func() error { return nil })
	g.Wait()
	if s := g.Stats(); s.Done != 2 {
		t.Fatalf("expected 2 done, got %+v", s)
	}
}

func TestCloseRejectsNewJobs(t *testing.T) {
	g := New("test")
	release := make(chan struct{})
	var ran atomic.Int32

	if err := g.Go("slow", func() error {
		<-release
		ran.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Go before Close: %v", err)
	}

	closed := make(chan struct{})
	go func() {
		g.Close()
		close(closed)
	}()

	// Close espera o job em andamento
	select {
	case <-closed:
		t.Fatal("Close returned with a job still running")
	case <-time.After(50 * time.Millisecond):
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		g.mu.RLock()
		closing := g.closed
		g.mu.RUnlock()
		if closing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Close never marked the group closed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// submissões tardias (ex.: trigger chegando no shutdown) não rodam
	if err := g.Go("late", func() error { ran.Add(100); return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	if ran.Load() != 1 {
		t.Fatalf("expected only the first job to run, got %d", ran.Load())
	}
}

func TestGoConcurrentWithWait(t *testing.T) {
	g := New("test")
	var wg sync.WaitGroup
	var ran atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = g.Go("job", func() error { ran.Add(1); return nil })
		}()
		go func() {
			defer wg.Done()
			g.Wait()
		}()
	}
	wg.Wait()
	g.Wait()

	if ran.Load() != 20 || g.Stats().Done != 20 {
		t.Fatalf("ran=%d stats=%+v", ran.Load(), g.Stats())
	}
}
