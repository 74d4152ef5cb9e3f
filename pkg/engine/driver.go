package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/synthline/ttscore/internal/observe"
	"github.com/synthline/ttscore/internal/resilience"
	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/label"
	"github.com/synthline/ttscore/pkg/waveform"
)

// Driver invokes the external parametric synthesis engine binary.
// One Driver is created per voice backend and reused across requests; the
// wrapped [resilience.CircuitBreaker] trips after repeated external-process
// failures so a misconfigured or crashing engine does not stall every
// subsequent request.
type Driver struct {
	Binary   string
	Defaults Params
	Breaker  *resilience.CircuitBreaker
	Metrics  *observe.Metrics
}

// NewDriver builds a Driver around binary, using defaults for any parameter
// not overridden per call. A circuit breaker is created with settings
// appropriate for an external subprocess call: a handful of consecutive
// failures trips it, and it probes again after a short cooldown.
func NewDriver(binary string, defaults Params, metrics *observe.Metrics) *Driver {
	return &Driver{
		Binary:   binary,
		Defaults: defaults,
		Breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          "engine:" + binary,
			MaxFailures:   5,
			ResetTimeout:  30 * time.Second,
			HalfOpenMax:   1,
			OnStateChange: recordBreakerTrip(metrics),
		}),
		Metrics: metrics,
	}
}

// recordBreakerTrip returns a [resilience.CircuitBreakerConfig.OnStateChange]
// callback reporting every transition to metrics, or nil if metrics is nil.
func recordBreakerTrip(metrics *observe.Metrics) func(name string, from, to resilience.State) {
	if metrics == nil {
		return nil
	}
	return func(name string, _, to resilience.State) {
		metrics.RecordCircuitBreakerTrip(context.Background(), name, to.String())
	}
}

// Synthesize invokes the external engine against labels, the full-context
// label lines already built for u's Segment relation by [label.BuildLabels],
// and assigns the resulting per-segment end times back onto u's Segment
// items plus the produced waveform onto u.Features["waveform"].
//
// Grounded on SynthesizerHTS.hts_synth: three scoped temp files (label-in,
// label-out, wav-out) are created and each is removed via a defer placed
// immediately after its creation, so a context cancellation mid-invocation
// still cleans up every file that was actually created.
func (d *Driver) Synthesize(ctx context.Context, u *hrg.Utterance, labels []string, overrides Params) (err error) {
	voiceName, _ := u.Features["voice"].(string)

	labelIn, err := os.CreateTemp("", "ttscore-label-in-*.lab")
	if err != nil {
		return fmt.Errorf("engine: create label-in temp file: %w", err)
	}
	defer os.Remove(labelIn.Name())

	labelOut, err := os.CreateTemp("", "ttscore-label-out-*.lab")
	if err != nil {
		return fmt.Errorf("engine: create label-out temp file: %w", err)
	}
	defer os.Remove(labelOut.Name())

	wavOut, err := os.CreateTemp("", "ttscore-wav-out-*.wav")
	if err != nil {
		return fmt.Errorf("engine: create wav-out temp file: %w", err)
	}
	defer os.Remove(wavOut.Name())

	if _, err := labelIn.WriteString(strings.Join(labels, "\n") + "\n"); err != nil {
		labelIn.Close()
		return fmt.Errorf("engine: write label-in file: %w", err)
	}
	if err := labelIn.Close(); err != nil {
		return fmt.Errorf("engine: close label-in file: %w", err)
	}
	// hts_engine opens its own output files; leaving them pre-created but
	// empty is fine, but they must not hold our write handles open.
	labelOut.Close()
	wavOut.Close()

	params := Merge(d.Defaults, overrides)
	args := params.BuildArgs(labelIn.Name(), labelOut.Name(), wavOut.Name())

	start := time.Now()
	runErr := d.Breaker.Execute(func() error {
		cmd := exec.CommandContext(ctx, d.Binary, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("engine: %s: %w: %s", d.Binary, err, stderr.String())
		}
		return nil
	})
	if d.Metrics != nil {
		d.Metrics.ExternalEngineDuration.Record(ctx, time.Since(start).Seconds())
	}
	if runErr != nil {
		if d.Metrics != nil {
			d.Metrics.RecordExternalEngineFailure(ctx, voiceName)
		}
		return runErr
	}

	if err := assignSegmentEndTimes(u, labelOut.Name()); err != nil {
		return err
	}

	wf, err := os.Open(wavOut.Name())
	if err != nil {
		return fmt.Errorf("engine: open wav-out file: %w", err)
	}
	defer wf.Close()
	w, err := waveform.Read(wf)
	if err != nil {
		return fmt.Errorf("engine: parse synthesized waveform: %w", err)
	}
	// Some engine builds stamp the RIFF header with their vocoder's
	// internal rate regardless of -s; resample so the waveform agrees
	// with the rate the segment end times were computed against.
	if params.SampleRate > 0 && w.SampleRate != params.SampleRate {
		w = w.Resample(params.SampleRate)
	}
	u.Features["waveform"] = w

	if params.OutLogF0 != "" {
		if track, err := readLogF0Track(params.OutLogF0, params.FramePeriod, params.SampleRate); err == nil {
			u.Features["f0track"] = track
		}
	}

	return nil
}

// assignSegmentEndTimes reads the engine's label-out file — the same
// label-line format as the input, but with real durations substituted — and
// assigns each line's HTK-int end time to the corresponding Segment item's
// "end" feature, in relation order. Mirrors hts_synth's
// zip(open(olab).readlines(), utt.get_relation("Segment").as_list()).
func assignSegmentEndTimes(u *hrg.Utterance, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("engine: open label-out file: %w", err)
	}
	defer f.Close()

	segs := u.Relation("Segment").Items()
	scanner := bufio.NewScanner(f)
	i := 0
	for scanner.Scan() && i < len(segs) {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fmt.Errorf("engine: label-out line %q missing end-time field", line)
		}
		htk, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("engine: label-out line %q: %w", line, err)
		}
		segs[i].SetFeature("end", label.HTKIntToFloat(htk))
		i++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("engine: read label-out file: %w", err)
	}
	return nil
}

// F0Track is a time-stamped fundamental-frequency track, produced when a
// voice's tone-variant labels request a log-F0 output file from the engine.
type F0Track struct {
	Times []float64
	LogF0 []float64
}

// readLogF0Track parses the engine's raw little-endian float32 log-F0
// output file into a time-stamped track, one value per frame period.
func readLogF0Track(path string, framePeriod, sampleRate int) (F0Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return F0Track{}, err
	}
	if framePeriod == 0 {
		framePeriod = 80
	}
	if sampleRate == 0 {
		sampleRate = 16000
	}
	frameSeconds := float64(framePeriod) / float64(sampleRate)

	n := len(data) / 4
	track := F0Track{
		Times: make([]float64, n),
		LogF0: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		track.LogF0[i] = float64(math.Float32frombits(bits))
		track.Times[i] = float64(i) * frameSeconds
	}
	return track, nil
}
