// Package beep plays short cue sounds: countdown ticks, the start of
// playback, pause markers, the end of the script and silence warnings.
package beep

import "math"

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Countdown tick: mid pitch, very short
	countFreq   = 880
	countVolume = 0.4
	countDecay  = 80

	// Go: high pitch, short, marks the end of the countdown
	goFreq   = 1320
	goVolume = 0.5
	goDecay  = 60

	// Cue: pause marker reached
	cueFreq   = 1000
	cueVolume = 0.5
	cueDecay  = 40

	// End of script: low falling pair
	endFreq   = 660
	endVolume = 0.5
	endDecay  = 30

	// Silence warning: low pitch double-beep
	warnFreq   = 350
	warnVolume = 0.6
	warnDecay  = 30
)

type sound int

const (
	soundCount sound = iota
	soundGo
	soundCue
	soundEnd
	soundWarn
	numSounds
)

// synth renders all cue sounds as mono 16-bit samples. tickDur scales the
// single-tick sounds (darwin uses shorter durations).
func synth(tickDur float64) [numSounds][]int16 {
	var s [numSounds][]int16
	s[soundCount] = tone(countFreq, tickDur*0.5, countVolume, countDecay)
	s[soundGo] = tone(goFreq, tickDur, goVolume, goDecay)
	s[soundCue] = tone(cueFreq, tickDur, cueVolume, cueDecay)
	s[soundEnd] = join(tone(endFreq, tickDur, endVolume, endDecay), 0.05, tone(endFreq*0.75, tickDur, endVolume, endDecay))
	s[soundWarn] = join(tone(warnFreq, 0.08, warnVolume, warnDecay), 0.05, tone(warnFreq, 0.08, warnVolume, warnDecay))
	return s
}

func tone(freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func join(a []int16, gapDur float64, b []int16) []int16 {
	gap := int(float64(sampleRate) * gapDur)
	out := make([]int16, 0, len(a)+gap+len(b))
	out = append(out, a...)
	out = append(out, make([]int16, gap)...)
	return append(out, b...)
}

func PlayCount() { play(soundCount) }
func PlayGo()    { play(soundGo) }
func PlayCue()   { play(soundCue) }
func PlayEnd()   { play(soundEnd) }
func PlayWarn()  { play(soundWarn) }
