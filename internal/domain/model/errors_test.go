package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("normalize: %w", ErrInvalidInput), KindInvalidInput},
		{fmt.Errorf("align: %w", ErrComputation), KindComputation},
		{ErrNoDetection, KindNoDetection},
		{fmt.Errorf("compare: %w", context.Canceled), KindCancelled},
		{context.DeadlineExceeded, KindCancelled},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
