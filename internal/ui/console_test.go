package ui

import "testing"

func TestSummarizeModels(t *testing.T) {
	tests := []struct {
		name   string
		models []string
		want   string
	}{
		{"few", []string{"a", "b"}, "a, b"},
		{"exact", []string{"a", "b", "c"}, "a, b, c"},
		{"many", []string{"a", "b", "c", "d", "e"}, "a, b, c, +2 more"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarizeModels(tt.models, 3); got != tt.want {
				t.Errorf("summarizeModels() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncatePath(t *testing.T) {
	if got := truncatePath("/v1/query", 20); got != "/v1/query" {
		t.Errorf("truncatePath() = %q, want /v1/query", got)
	}
	if got := truncatePath("/a/very/long/path/that/overflows", 10); got != "/a/very..." {
		t.Errorf("truncatePath() = %q, want /a/very...", got)
	}
}

func TestMaskKeyShort(t *testing.T) {
	if got := maskKeyShort("0123456789abcdef"); got != "0123...cdef" {
		t.Errorf("maskKeyShort() = %q, want 0123...cdef", got)
	}
	if got := maskKeyShort("short"); got != "***" {
		t.Errorf("maskKeyShort() = %q, want ***", got)
	}
}
