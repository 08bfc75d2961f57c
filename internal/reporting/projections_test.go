package reporting

import "testing"

func TestClampLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, defaultLimit},
		{-5, defaultLimit},
		{1, 1},
		{500, 500},
		{501, maxLimit},
		{10000, maxLimit},
	}
	for _, c := range cases {
		if got := clampLimit(c.in); got != c.want {
			t.Errorf("clampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestClampOffset(t *testing.T) {
	if got := clampOffset(-1); got != 0 {
		t.Errorf("clampOffset(-1) = %d, want 0", got)
	}
	if got := clampOffset(42); got != 42 {
		t.Errorf("clampOffset(42) = %d, want 42", got)
	}
}
