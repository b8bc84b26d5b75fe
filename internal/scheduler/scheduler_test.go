package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGoReportsError(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	s.Go(context.Background(), "unit-a", func(context.Context) error {
		return boom
	})

	select {
	case f := <-s.Faults():
		if f.Origin != "unit-a" {
			t.Errorf("fault origin = %q, want %q", f.Origin, "unit-a")
		}
		if !errors.Is(f.Err, boom) {
			t.Errorf("fault err = %v, want %v", f.Err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no fault delivered")
	}
}

func TestGoReportsPanic(t *testing.T) {
	s := New()

	s.Go(context.Background(), "unit-b", func(context.Context) error {
		panic("kaboom")
	})

	select {
	case f := <-s.Faults():
		if f.Origin != "unit-b" {
			t.Errorf("fault origin = %q, want %q", f.Origin, "unit-b")
		}
		if f.Err == nil {
			t.Error("fault err is nil for panic")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no fault delivered for panic")
	}
}

func TestGoIgnoresErrorAfterCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Go(ctx, "unit-c", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s.Wait()

	select {
	case f := <-s.Faults():
		t.Fatalf("unexpected fault after cancellation: %+v", f)
	default:
	}
}

func TestCallLaterFires(t *testing.T) {
	s := New()
	fired := make(chan struct{})

	s.CallLater(context.Background(), 10*time.Millisecond, "timer", func(context.Context) error {
		close(fired)
		return nil
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("CallLater callback never fired")
	}
}

func TestCallLaterSkippedOnCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	fired := make(chan struct{}, 1)
	s.CallLater(ctx, time.Hour, "timer", func(context.Context) error {
		fired <- struct{}{}
		return nil
	})
	cancel()
	s.Wait()

	select {
	case <-fired:
		t.Fatal("CallLater callback fired despite cancellation")
	default:
	}
}

func TestEveryStopsOnError(t *testing.T) {
	s := New()
	calls := 0

	s.Every(context.Background(), 5*time.Millisecond, "ticker", func(context.Context) error {
		calls++
		if calls == 2 {
			return errors.New("stop")
		}
		return nil
	})

	select {
	case f := <-s.Faults():
		if f.Origin != "ticker" {
			t.Errorf("fault origin = %q, want %q", f.Origin, "ticker")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Every did not report its error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
