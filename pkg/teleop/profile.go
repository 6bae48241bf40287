package teleop

// Profile holds the operator's current speed scalars. It is mutated
// only by explicit speed-adjust events and stays inside its envelope.
type Profile struct {
	Linear  float64 `json:"linear" yaml:"linear"`    // m/s
	Angular float64 `json:"angular" yaml:"angular"`  // rad/s
	Joint   float64 `json:"joint" yaml:"joint"`      // deg/s
}

// ProfileEnvelope bounds every speed scalar to [Min, Max].
type ProfileEnvelope struct {
	Min Profile `yaml:"min"`
	Max Profile `yaml:"max"`
}

// DefaultProfile returns the stock operating speeds.
func DefaultProfile() Profile {
	return Profile{Linear: 0.1, Angular: 0.3, Joint: 10.0}
}

// DefaultEnvelope returns the stock speed envelope.
func DefaultEnvelope() ProfileEnvelope {
	return ProfileEnvelope{
		Min: Profile{Linear: 0.01, Angular: 0.05, Joint: 1.0},
		Max: Profile{Linear: 0.5, Angular: 1.0, Joint: 30.0},
	}
}

// SpeedStep is the multiplier applied per speed-adjust event.
const SpeedStep = 1.25

// TurboFactor scales the profile while the turbo button is held.
const TurboFactor = 3.0

// Scaled returns the profile with every scalar multiplied by f.
func (p Profile) Scaled(f float64) Profile {
	return Profile{Linear: p.Linear * f, Angular: p.Angular * f, Joint: p.Joint * f}
}

// Clamp returns the profile bounded to the envelope.
func (e ProfileEnvelope) Clamp(p Profile) Profile {
	return Profile{
		Linear:  clampRange(p.Linear, e.Min.Linear, e.Max.Linear),
		Angular: clampRange(p.Angular, e.Min.Angular, e.Max.Angular),
		Joint:   clampRange(p.Joint, e.Min.Joint, e.Max.Joint),
	}
}

func clampRange(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
