package industry

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"62.01.Z", "6201Z"},
		{" 6201z ", "6201Z"},
		{"2222.Z", "2222Z"},
		{"29 10 b", "2910B"},
		{"64-19/Z", "6419Z"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := Normalize(got); again != got {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", tt.in, got, again)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("62.01.Z"); got != "Działalność związana z oprogramowaniem" {
		t.Errorf("Describe(62.01.Z) = %q", got)
	}
	if got := Describe("99.99.x"); got != "9999X" {
		t.Errorf("unknown code should fall back to normalized code, got %q", got)
	}
	if !Known("8220 Z") || Known("0000Z") {
		t.Error("Known mismatch")
	}
}
