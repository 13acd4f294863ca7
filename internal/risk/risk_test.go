package risk

import "testing"

func TestFromHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		hours float64
		want  Tier
	}{
		{"well under high threshold", 12, TierHigh},
		{"just under high threshold", 47.9, TierHigh},
		{"zero hours", 0, TierHigh},
		{"negative hours", -5, TierHigh},
		{"exactly high threshold", 48, TierMedium},
		{"middle of medium band", 100, TierMedium},
		{"just under medium threshold", 167.9, TierMedium},
		{"exactly medium threshold", 168, TierLow},
		{"well above medium threshold", 720, TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FromHours(tt.hours); got != tt.want {
				t.Fatalf("FromHours(%v) = %q, want %q", tt.hours, got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	for _, tier := range []Tier{TierLow, TierMedium, TierHigh} {
		if !Valid(tier) {
			t.Fatalf("Valid(%q) = false, want true", tier)
		}
	}

	if Valid(Tier("critical")) {
		t.Fatal(`Valid("critical") = true, want false`)
	}

	if Valid(Tier("")) {
		t.Fatal(`Valid("") = true, want false`)
	}
}
