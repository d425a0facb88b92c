package driver

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "navigation timeout",
			err:  &NavigationTimeoutError{URL: "http://x.test", Err: errors.New("deadline")},
			want: true,
		},
		{
			name: "selector not found",
			err:  &SelectorNotFoundError{Selector: ".cards", Err: errors.New("absent")},
			want: true,
		},
		{
			name: "session fatal",
			err:  &SessionFatalError{Err: errors.New("browser died")},
			want: false,
		},
		{
			name: "wrapped session fatal",
			err:  fmt.Errorf("open: %w", &SessionFatalError{Err: errors.New("no chromium")}),
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("something"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	wrapped := &NavigationTimeoutError{URL: "http://x.test", Err: inner}
	if !errors.Is(wrapped, inner) {
		t.Fatalf("NavigationTimeoutError should unwrap to its cause")
	}
}
