package audio

import (
	"github.com/gopxl/beep/v2"
)

// Envelope applies a constant gain with linear fade-in and fade-out ramps to
// a streamer of known length. Samples past Length are passed through
// untouched; callers bound the source with beep.Take.
type Envelope struct {
	Streamer beep.Streamer

	// Gain is the volume multiplier applied to every sample.
	Gain float64
	// FadeIn and FadeOut are ramp lengths in samples (0 disables the ramp).
	FadeIn  int
	FadeOut int
	// Length is the total number of samples the layer will play.
	Length int

	pos int
}

// NewEnvelope wraps s. Fade lengths are capped so that the ramps never
// overlap by more than the layer itself.
func NewEnvelope(s beep.Streamer, gain float64, fadeIn, fadeOut, length int) *Envelope {
	if fadeIn > length {
		fadeIn = length
	}
	if fadeOut > length {
		fadeOut = length
	}
	return &Envelope{Streamer: s, Gain: gain, FadeIn: fadeIn, FadeOut: fadeOut, Length: length}
}

// Stream implements beep.Streamer.
func (e *Envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		g := e.gainAt(e.pos)
		samples[i][0] *= g
		samples[i][1] *= g
		e.pos++
	}
	return n, ok
}

// Err implements beep.Streamer.
func (e *Envelope) Err() error {
	return e.Streamer.Err()
}

func (e *Envelope) gainAt(pos int) float64 {
	g := e.Gain
	if e.FadeIn > 0 && pos < e.FadeIn {
		g *= float64(pos) / float64(e.FadeIn)
	}
	if e.FadeOut > 0 && e.Length > 0 {
		left := e.Length - pos
		if left < e.FadeOut {
			if left < 0 {
				left = 0
			}
			g *= float64(left) / float64(e.FadeOut)
		}
	}
	return g
}
