package rpcapi

import "testing"

func TestMaskPII(t *testing.T) {
	cases := map[string]string{
		"905548777858": "90554***58",
		"05548777858":  "05548***58",
		"123":          "****",
	}
	for input, want := range cases {
		if got := maskPII(input); got != want {
			t.Errorf("maskPII(%q) = %q, want %q", input, got, want)
		}
	}
}
