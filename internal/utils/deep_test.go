package utils

import "testing"

func TestDeepEqual(t *testing.T) {
	tests := []struct {
		name     string
		a        any
		b        any
		expected bool
	}{
		{"equal maps", map[string]any{"a": 1, "b": "x"}, map[string]any{"a": 1, "b": "x"}, true},
		{"different values", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
		{"different types same shape", map[string]int{"a": 1}, map[string]any{"a": 1}, true},
		{"nested slices", []any{1, []any{2, 3}}, []any{1, []any{2, 3}}, true},
		{"nil vs empty map", nil, map[string]any{}, false},
		{"unserializable", func() {}, func() {}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeepEqual(tt.a, tt.b); got != tt.expected {
				t.Errorf("DeepEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestDeepCopy(t *testing.T) {
	src := map[string]any{"ch": "orders", "filters": []any{"new", "paid"}}

	var dst map[string]any
	if err := DeepCopy(&dst, src); err != nil {
		t.Fatalf("DeepCopy returned error: %v", err)
	}
	if !DeepEqual(src, dst) {
		t.Fatalf("copy differs from source: %v vs %v", src, dst)
	}

	// Mutating the copy must not touch the source.
	dst["filters"].([]any)[0] = "cancelled"
	if DeepEqual(src, dst) {
		t.Error("mutation of copy leaked into source")
	}
}

func TestDeepCopyUnserializable(t *testing.T) {
	var dst map[string]any
	if err := DeepCopy(&dst, make(chan int)); err == nil {
		t.Error("expected error copying a channel")
	}
}
