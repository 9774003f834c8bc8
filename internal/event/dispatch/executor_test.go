package dispatch

import (
	"context"
	"errors"
	"testing"
)

type emission struct {
	name string
}

func newTestHandler(fn func(ctx context.Context, e emission) error) Handler[emission] {
	return HandlerFunc[emission](fn)
}

func TestResult_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		result    Result
		isSuccess bool
		isError   bool
		isPanic   bool
	}{
		{"success", Result{Success: true}, true, false, false},
		{"error", Result{Error: errors.New("boom")}, false, true, false},
		{"panic", Result{Panicked: true, PanicValue: "boom"}, false, false, true},
		{"success flag with error", Result{Success: true, Error: errors.New("boom")}, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.isSuccess {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.isSuccess)
			}
			if got := tt.result.IsError(); got != tt.isError {
				t.Errorf("IsError() = %v, want %v", got, tt.isError)
			}
			if got := tt.result.IsPanic(); got != tt.isPanic {
				t.Errorf("IsPanic() = %v, want %v", got, tt.isPanic)
			}
		})
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	executor := NewExecutor[emission]()

	var received emission
	handler := newTestHandler(func(ctx context.Context, e emission) error {
		received = e
		return nil
	})

	result := executor.Execute(context.Background(), emission{name: "asset-selected"}, handler)

	if !result.IsSuccess() {
		t.Errorf("expected success, got %+v", result)
	}
	if received.name != "asset-selected" {
		t.Errorf("expected emission 'asset-selected', got %q", received.name)
	}
}

func TestExecutor_Execute_Error(t *testing.T) {
	executor := NewExecutor[emission]()
	expectedErr := errors.New("handler error")

	handler := newTestHandler(func(ctx context.Context, e emission) error {
		return expectedErr
	})

	result := executor.Execute(context.Background(), emission{}, handler)

	if result.IsSuccess() {
		t.Error("expected failure")
	}
	if !result.IsError() {
		t.Error("expected IsError() to be true")
	}
	if !errors.Is(result.Error, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, result.Error)
	}
}

func TestExecutor_Execute_Panic(t *testing.T) {
	var captured any
	var capturedEmission emission

	executor := NewExecutor(
		WithExecutorPanicHandler(func(e emission, panicValue any, stack []byte) {
			captured = panicValue
			capturedEmission = e
		}),
	)

	handler := newTestHandler(func(ctx context.Context, e emission) error {
		panic("test panic")
	})

	result := executor.Execute(context.Background(), emission{name: "download"}, handler)

	if !result.IsPanic() {
		t.Fatal("expected IsPanic() to be true")
	}
	if result.PanicValue != "test panic" {
		t.Errorf("expected panic value 'test panic', got %v", result.PanicValue)
	}
	if len(result.PanicStack) == 0 {
		t.Error("expected non-empty stack trace")
	}
	if captured != "test panic" {
		t.Errorf("panic handler received wrong value: %v", captured)
	}
	if capturedEmission.name != "download" {
		t.Errorf("panic handler received wrong emission: %+v", capturedEmission)
	}
}

func TestExecutor_Execute_PanicHandlerPanics(t *testing.T) {
	executor := NewExecutor(
		WithExecutorPanicHandler(func(e emission, panicValue any, stack []byte) {
			panic("panic handler panicked")
		}),
	)

	handler := newTestHandler(func(ctx context.Context, e emission) error {
		panic("original")
	})

	result := executor.Execute(context.Background(), emission{}, handler)
	if !result.IsPanic() || result.PanicValue != "original" {
		t.Errorf("expected original panic to be reported, got %+v", result)
	}
}

func TestExecutor_Execute_IgnoresCancelledContext(t *testing.T) {
	executor := NewExecutor[emission]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	handler := newTestHandler(func(ctx context.Context, e emission) error {
		called = true
		return nil
	})

	result := executor.Execute(ctx, emission{}, handler)
	if !called {
		t.Error("handler must run even when the context is already cancelled")
	}
	if !result.IsSuccess() {
		t.Errorf("expected success, got %+v", result)
	}
}

func TestExecutor_ExecuteAll_ContinuesAfterFailure(t *testing.T) {
	executor := NewExecutor[emission]()

	var order []int
	handlers := []Handler[emission]{
		newTestHandler(func(ctx context.Context, e emission) error {
			order = append(order, 1)
			panic("first")
		}),
		newTestHandler(func(ctx context.Context, e emission) error {
			order = append(order, 2)
			return errors.New("second")
		}),
		newTestHandler(func(ctx context.Context, e emission) error {
			order = append(order, 3)
			return nil
		}),
	}

	results := executor.ExecuteAll(context.Background(), emission{}, handlers)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected order [1 2 3], got %v", order)
	}
	if !results[0].IsPanic() || !results[1].IsError() || !results[2].IsSuccess() {
		t.Errorf("unexpected results: %+v", results)
	}
}
