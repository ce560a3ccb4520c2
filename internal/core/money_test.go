package core

import "testing"

func TestGSTComponent(t *testing.T) {
	cases := []struct {
		amount     float64
		registered bool
		want       string
	}{
		{110, true, "10.00"},
		{100, true, "9.09"},
		{1000, true, "90.91"},
		{100, false, "0.00"},
		{0, true, "0.00"},
	}
	for _, tc := range cases {
		got := Fixed2(GSTComponent(tc.amount, tc.registered))
		if got != tc.want {
			t.Fatalf("GSTComponent(%v, %v) = %s, want %s", tc.amount, tc.registered, got, tc.want)
		}
	}
}

func TestGSTComponent_NotRoundedInternally(t *testing.T) {
	got := GSTComponent(100, true)
	if got == Round2(got) {
		t.Fatalf("GSTComponent(100) = %v, expected full precision", got)
	}
	if ex := ExGST(110, true); ex != 100 {
		t.Fatalf("ExGST(110) = %v, want 100", ex)
	}
}

func TestRound2AndFixed2(t *testing.T) {
	cases := []struct {
		in    float64
		round float64
		fixed string
	}{
		{5, 5, "5.00"},
		{2.675, 2.68, "2.68"},
		{1234.5, 1234.5, "1234.50"},
		{-3.005, -3.01, "-3.01"},
		{0.004, 0, "0.00"},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.round {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.round)
		}
		if got := Fixed2(tc.in); got != tc.fixed {
			t.Fatalf("Fixed2(%v) = %q, want %q", tc.in, got, tc.fixed)
		}
	}
}

func TestDisplay(t *testing.T) {
	cases := map[float64]string{
		1234.5:  "$1,234.50",
		0:       "$0.00",
		-12.3:   "-$12.30",
		1000000: "$1,000,000.00",
	}
	for in, want := range cases {
		if got := Display(in); got != want {
			t.Fatalf("Display(%v) = %q, want %q", in, got, want)
		}
	}
}
