// SPDX-License-Identifier: MPL-2.0

package gather

import (
	"slices"
	"testing"
)

func TestRunContext_MarkProcessed(t *testing.T) {
	t.Parallel()

	rc := NewRunContext("/cache", nil)
	if !rc.MarkProcessed("preview/a:1.0.0") {
		t.Error("first MarkProcessed() = false, want true")
	}
	if rc.MarkProcessed("preview/a:1.0.0") {
		t.Error("second MarkProcessed() = true, want false")
	}
	if !rc.IsProcessed("preview/a:1.0.0") || rc.IsProcessed("preview/a:1.0.1") {
		t.Error("IsProcessed() disagrees with MarkProcessed()")
	}
	rc.MarkProcessed("local/b:1.0.0")
	if got, want := rc.Processed(), []string{"local/b:1.0.0", "preview/a:1.0.0"}; !slices.Equal(got, want) {
		t.Errorf("Processed() = %v, want %v", got, want)
	}
}

func TestRunContext_UnconfiguredLocal(t *testing.T) {
	t.Parallel()

	rc := NewRunContext("/cache", []string{"configured"})
	rc.RecordLocal("zeta", "z.typ")
	rc.RecordLocal("alpha", "first.typ")
	rc.RecordLocal("alpha", "second.typ")
	rc.RecordLocal("configured", "c.typ")

	want := []LocalRef{{Name: "alpha", File: "first.typ"}, {Name: "zeta", File: "z.typ"}}
	if got := rc.UnconfiguredLocal(); !slices.Equal(got, want) {
		t.Errorf("UnconfiguredLocal() = %v, want %v", got, want)
	}
	if !rc.IsConfiguredLocal("configured") || rc.IsConfiguredLocal("alpha") {
		t.Error("IsConfiguredLocal() wrong")
	}
	if rc.Destination() != "/cache" {
		t.Errorf("Destination() = %q, want /cache", rc.Destination())
	}
}

func TestStats_String(t *testing.T) {
	t.Parallel()

	s := Stats{Downloaded: 3, Copied: 1, Skipped: 2, Failed: 0}
	if want := "3 downloaded, 1 copied, 2 skipped, 0 failed"; s.String() != want {
		t.Errorf("String() = %q, want %q", s.String(), want)
	}
}

func TestResult_OK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"clean", Result{Stats: Stats{Downloaded: 1}}, true},
		{"failure", Result{Stats: Stats{Failed: 1}}, false},
		{"unconfigured local", Result{UnconfiguredLocal: []LocalRef{{Name: "x", File: "a.typ"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.res.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}
