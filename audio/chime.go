// Package audio plays short synthesized cues through the system speaker.
package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/powermode/wow"
)

const (
	sampleRate    = beep.SampleRate(48000)
	chimeDuration = 180 * time.Millisecond
)

// Tone frequencies in Hz, on rises and off falls
var (
	onTones  = []float64{523.25, 783.99}
	offTones = []float64{783.99, 523.25}
)

// Chime plays a two-note cue for wow mode edges
// Implements notify.Notifier; all calls are safe before Initialize and after Cleanup
type Chime struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	muted       bool
}

// NewChime creates an uninitialized chime
func NewChime() *Chime {
	return &Chime{
		mixer: &beep.Mixer{},
	}
}

// Initialize opens the speaker, failure leaves the chime silent
func (c *Chime) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}

	speaker.Play(c.mixer)
	c.initialized = true
	return nil
}

// Cleanup drops pending cues
func (c *Chime) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}
	speaker.Lock()
	c.mixer.Clear()
	speaker.Unlock()
	c.initialized = false
}

// SetMuted toggles playback without releasing the device
func (c *Chime) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

// Notify implements notify.Notifier, the title picks the tone direction
func (c *Chime) Notify(title, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || c.muted {
		return
	}

	tones := offTones
	if title == wow.MessageOn {
		tones = onTones
	}

	speaker.Lock()
	c.mixer.Add(NewChimeSequence(sampleRate, tones))
	speaker.Unlock()
}

// NewChimeSequence plays each tone for chimeDuration back to back
func NewChimeSequence(sr beep.SampleRate, tones []float64) beep.Streamer {
	parts := make([]beep.Streamer, 0, len(tones))
	for _, f := range tones {
		parts = append(parts, beep.Take(sr.N(chimeDuration), NewToneGenerator(sr, f, chimeDuration)))
	}
	return beep.Seq(parts...)
}

// ToneGenerator generates a sine tone with a short attack and exponential decay
type ToneGenerator struct {
	sr   beep.SampleRate
	freq float64
	pos  int
	len  int
}

// NewToneGenerator creates a tone generator lasting d
func NewToneGenerator(sr beep.SampleRate, freq float64, d time.Duration) *ToneGenerator {
	return &ToneGenerator{
		sr:   sr,
		freq: freq,
		len:  sr.N(d),
	}
}

func (g *ToneGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	if g.pos >= g.len {
		return 0, false
	}
	for i := range samples {
		if g.pos >= g.len {
			return i, true
		}
		t := float64(g.pos) / float64(g.sr)

		attack := math.Min(t/0.005, 1.0)
		envelope := attack * math.Exp(-t*12)

		// Fundamental plus a soft octave for a bell-like timbre
		sample := 0.6*math.Sin(2*math.Pi*g.freq*t) + 0.2*math.Sin(2*math.Pi*g.freq*2*t)
		sample *= 0.25 * envelope

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *ToneGenerator) Err() error {
	return nil
}
