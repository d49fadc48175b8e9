package robot

// ForceCalibration converts a load cell's bridge voltage ratio to force.
type ForceCalibration struct {
	Gain   float64 `koanf:"gain" yaml:"gain"`
	Offset float64 `koanf:"offset" yaml:"offset"`
}

// Force converts a voltage ratio to force.
func (c ForceCalibration) Force(ratio float64) float64 {
	return ratio*c.Gain - c.Offset
}

// Ratio converts a force back to the voltage ratio that produces it.
func (c ForceCalibration) Ratio(force float64) float64 {
	if c.Gain == 0 {
		return 0
	}
	return (force + c.Offset) / c.Gain
}

// Calibration holds one entry per load cell channel, in channel order.
type Calibration []ForceCalibration

// DefaultCalibration returns the rig's load cell calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		{Gain: 56230, Offset: 2.8131},
		{Gain: 56251, Offset: 5.1885},
		{Gain: 56145, Offset: 0.3451},
		{Gain: 56145, Offset: 1.2198},
	}
}

// Force converts a ratio on the given channel. Unknown channels read zero.
func (c Calibration) Force(channel int, ratio float64) float64 {
	if channel < 0 || channel >= len(c) {
		return 0
	}
	return c[channel].Force(ratio)
}
