package robot

import (
	"math"
	"testing"
)

func TestForceCalibration_Force(t *testing.T) {
	cal := ForceCalibration{Gain: 56230, Offset: 2.8131}

	tests := []struct {
		ratio    float64
		expected float64
	}{
		{0, -2.8131},
		{0.0001, 5.623 - 2.8131},
		{-0.0001, -5.623 - 2.8131},
		{2.8131 / 56230, 0},
	}

	for _, tt := range tests {
		got := cal.Force(tt.ratio)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Force(%g) = %f, want %f", tt.ratio, got, tt.expected)
		}
	}
}

func TestForceCalibration_RoundTrip(t *testing.T) {
	for _, cal := range DefaultCalibration() {
		for _, force := range []float64{-10, 0, 0.5, 12.25} {
			got := cal.Force(cal.Ratio(force))
			if math.Abs(got-force) > 1e-9 {
				t.Errorf("Force(Ratio(%f)) = %f with %+v", force, got, cal)
			}
		}
	}
}

func TestForceCalibration_ZeroGain(t *testing.T) {
	if got := (ForceCalibration{Offset: 1}).Ratio(5); got != 0 {
		t.Errorf("Ratio with zero gain = %f, want 0", got)
	}
}

func TestCalibration_Channels(t *testing.T) {
	cal := DefaultCalibration()
	if len(cal) != 4 {
		t.Fatalf("DefaultCalibration has %d channels, want 4", len(cal))
	}

	const ratio = 0.0002
	want := []float64{
		ratio*56230 - 2.8131,
		ratio*56251 - 5.1885,
		ratio*56145 - 0.3451,
		ratio*56145 - 1.2198,
	}
	for ch, w := range want {
		if got := cal.Force(ch, ratio); math.Abs(got-w) > 1e-9 {
			t.Errorf("channel %d: Force = %f, want %f", ch, got, w)
		}
	}

	if got := cal.Force(4, ratio); got != 0 {
		t.Errorf("unknown channel: Force = %f, want 0", got)
	}
	if got := cal.Force(-1, ratio); got != 0 {
		t.Errorf("negative channel: Force = %f, want 0", got)
	}
}
