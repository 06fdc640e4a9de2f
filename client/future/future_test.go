package future

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetResultFirstWins(t *testing.T) {
	f := New[int]()

	if !f.SetResult(42) {
		t.Fatalf("first SetResult should win")
	}
	if f.SetResult(43) {
		t.Errorf("second SetResult should be ignored")
	}
	if f.SetErr(errors.New("too late")) {
		t.Errorf("SetErr after SetResult should be ignored")
	}

	result, err := f.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
}

func TestSetErrFirstWins(t *testing.T) {
	f := New[int]()
	expected := errors.New("boom")

	if !f.SetErr(expected) {
		t.Fatalf("first SetErr should win")
	}
	if f.SetResult(1) {
		t.Errorf("SetResult after SetErr should be ignored")
	}

	_, err := f.Result()
	if !errors.Is(err, expected) {
		t.Errorf("expected %v, got %v", expected, err)
	}
}

func TestDone(t *testing.T) {
	f := New[string]()

	if f.Done() {
		t.Errorf("new future should not be done")
	}

	f.SetResult("ok")

	if !f.Done() {
		t.Errorf("resolved future should be done")
	}
}

func TestResultBlocksUntilResolved(t *testing.T) {
	f := New[string]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.SetResult("delayed")
	}()

	result, err := f.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "delayed" {
		t.Errorf("expected %q, got %q", "delayed", result)
	}
}

func TestCallbacksRunInRegistrationOrder(t *testing.T) {
	f := New[int]()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		f.AddDoneCallback(func(*Future[int]) {
			order = append(order, i)
		})
	}

	f.SetResult(1)

	if len(order) != 5 {
		t.Fatalf("expected 5 callbacks, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("callback %d ran out of order (got position of callback %d)", i, got)
		}
	}
}

func TestCallbackAfterResolutionRunsImmediately(t *testing.T) {
	f := New[int]()
	f.SetResult(7)

	ran := false
	f.AddDoneCallback(func(done *Future[int]) {
		ran = true
		result, err := done.Result()
		if err != nil || result != 7 {
			t.Errorf("callback saw result=%d err=%v", result, err)
		}
	})

	if !ran {
		t.Errorf("callback on a resolved future must run on the calling goroutine")
	}
}

func TestCallbackPanicIsIsolated(t *testing.T) {
	f := New[int]()

	secondRan := false
	f.AddDoneCallback(func(*Future[int]) {
		panic("bad callback")
	})
	f.AddDoneCallback(func(*Future[int]) {
		secondRan = true
	})

	// Must not panic through the resolver.
	f.SetResult(1)

	if !secondRan {
		t.Errorf("a panicking callback must not prevent its siblings from running")
	}
}

func TestConcurrentResolutionExactlyOneWins(t *testing.T) {
	f := New[int]()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.SetResult(i) {
				wins <- i
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []int
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}

	result, _ := f.Result()
	if result != winners[0] {
		t.Errorf("stored result %d does not match winner %d", result, winners[0])
	}
}

func TestContinueWithTransformsResult(t *testing.T) {
	f := New[int]()

	continuation := ContinueWith(f, func(v int) (string, error) {
		return fmt.Sprintf("value=%d", v), nil
	})

	f.SetResult(9)

	result, err := continuation.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "value=9" {
		t.Errorf("expected %q, got %q", "value=9", result)
	}
}

func TestContinueWithPropagatesBaseError(t *testing.T) {
	f := New[int]()
	expected := errors.New("base failed")

	invoked := false
	continuation := ContinueWith(f, func(int) (string, error) {
		invoked = true
		return "", nil
	})

	f.SetErr(expected)

	_, err := continuation.Result()
	if !errors.Is(err, expected) {
		t.Errorf("expected base error %v, got %v", expected, err)
	}
	if invoked {
		t.Errorf("transformation must not run when the base future failed")
	}
}

func TestContinueWithErrorInTransform(t *testing.T) {
	f := New[int]()
	expected := errors.New("transform failed")

	continuation := ContinueWith(f, func(int) (string, error) {
		return "", expected
	})

	f.SetResult(1)

	_, err := continuation.Result()
	if !errors.Is(err, expected) {
		t.Errorf("expected %v, got %v", expected, err)
	}
}

func TestContinueWithPanicInTransform(t *testing.T) {
	t.Run("error panic", func(t *testing.T) {
		f := New[int]()
		expected := errors.New("panicked")

		continuation := ContinueWith(f, func(int) (string, error) {
			panic(expected)
		})

		f.SetResult(1)

		_, err := continuation.Result()
		if !errors.Is(err, expected) {
			t.Errorf("expected %v, got %v", expected, err)
		}
	})

	t.Run("value panic", func(t *testing.T) {
		f := New[int]()

		continuation := ContinueWith(f, func(int) (string, error) {
			panic("not an error")
		})

		f.SetResult(1)

		_, err := continuation.Result()
		var panicErr *PanicError
		if !errors.As(err, &panicErr) {
			t.Fatalf("expected PanicError, got %v", err)
		}
		if panicErr.Value != "not an error" {
			t.Errorf("unexpected panic value: %v", panicErr.Value)
		}
	})
}

func TestContinueWithOnResolvedFuture(t *testing.T) {
	f := New[int]()
	f.SetResult(3)

	continuation := ContinueWith(f, func(v int) (int, error) {
		return v * 2, nil
	})

	if !continuation.Done() {
		t.Fatalf("continuation of a resolved future should resolve immediately")
	}
	result, _ := continuation.Result()
	if result != 6 {
		t.Errorf("expected 6, got %d", result)
	}
}
