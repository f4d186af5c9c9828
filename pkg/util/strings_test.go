package util

import "testing"

func TestParseNumber(t *testing.T) {
	cases := map[string]struct {
		want float64
		ok   bool
	}{
		"1,234.5": {1234.5, true},
		"+56":     {56, true},
		"-1.25%":  {-1.25, true},
		"-":       {0, false},
		"":        {0, false},
		"N/A":     {0, false},
		"abc":     {0, false},
	}
	for in, tc := range cases {
		got, ok := ParseNumber(in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseNumber(%q) = %v,%v want %v,%v", in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseInt64(t *testing.T) {
	if v, ok := ParseInt64("-12,345"); !ok || v != -12345 {
		t.Fatalf("unexpected %v %v", v, ok)
	}
	if v, ok := ParseInt64("1,000.0"); !ok || v != 1000 {
		t.Fatalf("unexpected %v %v", v, ok)
	}
	if _, ok := ParseInt64("x"); ok {
		t.Fatalf("expected failure")
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" today, ,week ")
	if len(got) != 2 || got[0] != "today" || got[1] != "week" {
		t.Fatalf("unexpected %v", got)
	}
}
