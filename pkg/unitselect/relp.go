package unitselect

import (
	"fmt"
	"math"

	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/waveform"
)

// SampleRate is the fixed sample rate RELP resynthesis assumes, matching
// the original's hardcoded SAMPLERATE.
const SampleRate = 16000

// hamming returns a length-n Hamming window.
func hamming(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{1}
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// windowResidual splits residual into one Hamming-windowed frame per LPC
// analysis time in track, centered on that time, per window_residual in
// the original: the window for frame i spans from
// (times[i] - halfperiod) to centersample + (centersample - firstsample),
// where halfperiod is the gap since the previous frame's time.
func windowResidual(track LPCTrack, residual []float64) [][]float64 {
	frames := make([][]float64, len(track.Times))
	prevTime := 0.0
	for i, t := range track.Times {
		halfPeriod := t - prevTime
		centerSample := int(math.Round(t * SampleRate))
		firstTime := t - halfPeriod
		firstSample := int(math.Round(firstTime * SampleRate))
		lastSample := centerSample + (centerSample - firstSample)

		if firstSample < 0 {
			firstSample = 0
		}
		if lastSample+1 > len(residual) {
			lastSample = len(residual) - 1
		}
		var raw []float64
		if firstSample <= lastSample {
			raw = append(raw, residual[firstSample:lastSample+1]...)
		}
		win := hamming(len(raw))
		frame := make([]float64, len(raw))
		for j := range raw {
			frame[j] = win[j] * raw[j]
		}
		frames[i] = frame
		prevTime = t
	}
	return frames
}

// SynthFilter is the RELP all-pole synthesis filter: per output sample j
// within frame i's span, it predicts from previously synthesized samples
// weighted by that frame's LPC coefficients, then adds the excitation
// residual. The `j-k > 0` bound (strict, not `>=`) excludes the sample
// exactly k positions back whenever j equals k, a one-sample difference
// from the mathematically "correct" `j-k >= 0` that changes the
// resynthesized waveform. It is kept, and pinned by a regression test,
// since real trained models were
// never evaluated against the corrected version.
func SynthFilter(times []float64, lpcs [][]float64, residual []float64, sampleRate int) []int16 {
	samples := make([]int16, len(residual))
	startSample := 0
	for i, frame := range lpcs {
		var endSample int
		if i+1 < len(times) {
			endSample = int((times[i]+times[i+1])*float64(sampleRate)) / 2
		} else {
			endSample = len(residual)
		}
		if endSample > len(residual) {
			endSample = len(residual)
		}

		for j := startSample; j < endSample; j++ {
			s := 0.0
			for k := 1; k < len(frame); k++ {
				if j-k > 0 {
					s += frame[k] * float64(samples[j-k])
				}
			}
			samples[j] = int16(s) + int16(residual[j])
		}
		startSample = endSample
	}
	return samples
}

// ConcatRELPSynth concatenates the selected Unit candidates' LPC tracks
// and windowed residuals (overlap-adding the residuals into one buffer),
// then runs [SynthFilter] over the result, producing the utterance's
// waveform. Requires [SelectUnits] to have already annotated every Unit
// item's "selected_unit" feature.
func ConcatRELPSynth(u *hrg.Utterance) (*waveform.Waveform, error) {
	unitRel, ok := u.GetRelation(UnitRelationName)
	if !ok {
		return nil, fmt.Errorf("unitselect: utterance has no Unit relation")
	}
	units := unitRel.Items()
	if len(units) == 0 {
		return nil, fmt.Errorf("unitselect: no units to synthesize")
	}

	var times []float64
	var values [][]float64
	var residualFrames [][]float64

	timeOffset := 0.0
	for _, unit := range units {
		cand, ok := unit.Features()["selected_unit"].(*Candidate)
		if !ok || cand == nil {
			return nil, fmt.Errorf("unitselect: unit %q has no selected candidate", unit.Features().String("name"))
		}

		frames := windowResidual(cand.LPC, cand.Residual)
		residualFrames = append(residualFrames, frames...)

		for i, t := range cand.LPC.Times {
			times = append(times, t+timeOffset)
			values = append(values, cand.LPC.Values[i])
		}
		if n := len(cand.LPC.Times); n > 0 {
			timeOffset += cand.LPC.Times[n-1]
		}
	}

	if len(times) == 0 {
		return &waveform.Waveform{SampleRate: SampleRate, Channels: 1}, nil
	}

	lastFrame := residualFrames[len(residualFrames)-1]
	lastSample := int(math.Round(times[len(times)-1]*SampleRate)) + len(lastFrame)/2
	residual := make([]float64, lastSample+1)

	for i, t := range times {
		centerSample := int(math.Round(t * SampleRate))
		firstSample := centerSample - len(residualFrames[i])/2
		for j, v := range residualFrames[i] {
			idx := firstSample + j
			if idx < 0 || idx >= len(residual) {
				continue
			}
			residual[idx] += v
		}
	}

	samples := SynthFilter(times, values, residual, SampleRate)

	return &waveform.Waveform{
		SampleRate: SampleRate,
		Channels:   1,
		Samples:    samples,
	}, nil
}
