package domain

import "testing"

func TestRiskFromVerdict(t *testing.T) {
	if got := RiskFromVerdict("Autistic Syndrome"); got != RiskHigh {
		t.Fatalf("autistic verdict: got %q, want %q", got, RiskHigh)
	}
	for _, v := range []string{"Not Autistic", "Typical Development", "", "autistic syndrome"} {
		if got := RiskFromVerdict(v); got != RiskLow {
			t.Fatalf("verdict %q: got %q, want %q", v, got, RiskLow)
		}
	}
}

func TestScoreFromConfidence(t *testing.T) {
	cases := []struct {
		conf float64
		want int
	}{
		{0, 0},
		{0.82, 82},
		{0.825, 83}, // round half up
		{0.004, 0},
		{1, 100},
	}
	for _, tc := range cases {
		if got := ScoreFromConfidence(tc.conf); got != tc.want {
			t.Fatalf("ScoreFromConfidence(%v) = %d, want %d", tc.conf, got, tc.want)
		}
	}
}

func TestChildIDsEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"7", "7", true},
		{"7", " 7 ", true},
		{"007", "7", true}, // numeric forms collapse
		{"patient-123", "patient-123", true},
		{"patient-123", "patient-124", false},
		{"7", "8", false},
		{"abc", "7", false},
		{"", "", true},
	}
	for _, tc := range cases {
		if got := ChildIDsEqual(tc.a, tc.b); got != tc.want {
			t.Fatalf("ChildIDsEqual(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMatchesChild(t *testing.T) {
	r := ResultRecord{ChildID: "42"}
	if !r.MatchesChild("42") || !r.MatchesChild("042") {
		t.Fatalf("expected numeric-tolerant match")
	}
	if r.MatchesChild("43") {
		t.Fatalf("unexpected match for different id")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{60, "1 minutes"},
		{90, "1.5 minutes"},
		{252, "4.2 minutes"},
		{0, "0 minutes"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
