package prosody_test

import (
	"testing"

	"github.com/prose-pod/pod/internal/pod/prosody"
)

func TestParseDuration_RoundTrip(t *testing.T) {
	cases := []prosody.Duration{
		prosody.TimeLikeDuration(30, prosody.UnitSeconds),
		prosody.TimeLikeDuration(5, prosody.UnitMinutes),
		prosody.TimeLikeDuration(2, prosody.UnitHours),
		prosody.DateLikeDuration(7, prosody.UnitDays),
		prosody.DateLikeDuration(2, prosody.UnitWeeks),
		prosody.DateLikeDuration(6, prosody.UnitMonths),
		prosody.DateLikeDuration(1, prosody.UnitYears),
	}
	for _, d := range cases {
		s := d.String()
		got, err := prosody.ParseDuration(s)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", s, err)
		}
		if got.String() != s {
			t.Errorf("round trip mismatch: %q parsed then rendered as %q", s, got.String())
		}
	}
}

func TestParseDuration_Unrecognized(t *testing.T) {
	if _, err := prosody.ParseDuration("forever"); err == nil {
		t.Fatalf("expected error for unrecognized unit")
	}
}

func TestParseDuration_InvalidAmount(t *testing.T) {
	if _, err := prosody.ParseDuration("xd"); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}
