// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"fmt"
	"syscall"
	"testing"
)

func TestIsFatalError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{syscall.ENOSPC, true},
		{syscall.EMFILE, true},
		{syscall.ENFILE, true},
		{fmt.Errorf("inotify_add_watch: %w", syscall.ENOSPC), true},
		{syscall.EACCES, false},
		{fmt.Errorf("queue overflow"), false},
	}

	for _, tt := range tests {
		if got := isFatalError(tt.err); got != tt.want {
			t.Errorf("isFatalError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
