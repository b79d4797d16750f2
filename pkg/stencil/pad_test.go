package stencil

import "testing"

func TestPadString(t *testing.T) {
	tests := []struct {
		in    string
		width []int
		want  string
	}{
		{"TEST", nil, "0TEST"},
		{"TEST", []int{4}, "TEST"},
		{"TEST", []int{2}, "TEST"},
		{"", nil, "00000"},
		{"7", []int{3}, "007"},
		{"123456", nil, "123456"},
	}
	for _, tt := range tests {
		if got := PadString(tt.in, tt.width...); got != tt.want {
			t.Errorf("PadString(%q, %v) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPad(t *testing.T) {
	if got := Pad(1); got != "00001" {
		t.Errorf("Pad(1) = %q, want 00001", got)
	}
	if got := Pad(42, 3); got != "042" {
		t.Errorf("Pad(42, 3) = %q, want 042", got)
	}
	if got := Pad(123456); got != "123456" {
		t.Errorf("Pad(123456) = %q, want 123456", got)
	}
}

func TestPadInjective(t *testing.T) {
	seen := make(map[string]int)
	for n := 0; n < 2000; n++ {
		key := Pad(n)
		if prev, ok := seen[key]; ok {
			t.Fatalf("Pad(%d) and Pad(%d) both give %q", prev, n, key)
		}
		seen[key] = n
		if len(key) < DefaultPadWidth {
			t.Fatalf("Pad(%d) = %q is shorter than %d", n, key, DefaultPadWidth)
		}
	}
}
