package teleop

import "testing"

func TestProfileScaled(t *testing.T) {
	p := Profile{Linear: 0.1, Angular: 0.2, Joint: 10}
	got := p.Scaled(2)
	want := Profile{Linear: 0.2, Angular: 0.4, Joint: 20}
	if got != want {
		t.Errorf("Scaled(2) = %+v, want %+v", got, want)
	}
}

func TestEnvelopeClamp(t *testing.T) {
	env := DefaultEnvelope()

	low := env.Clamp(Profile{Linear: 0.0001, Angular: 0.0001, Joint: 0.0001})
	if low != env.Min {
		t.Errorf("Below-envelope profile should clamp to Min, got %+v", low)
	}

	high := env.Clamp(Profile{Linear: 99, Angular: 99, Joint: 99})
	if high != env.Max {
		t.Errorf("Above-envelope profile should clamp to Max, got %+v", high)
	}

	mid := Profile{Linear: 0.2, Angular: 0.5, Joint: 15}
	if env.Clamp(mid) != mid {
		t.Errorf("In-envelope profile must pass through unchanged")
	}
}

func TestDefaultProfileInsideEnvelope(t *testing.T) {
	env := DefaultEnvelope()
	p := DefaultProfile()
	if env.Clamp(p) != p {
		t.Errorf("Default profile %+v escapes the default envelope", p)
	}
}
