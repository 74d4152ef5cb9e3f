package engine

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/synthline/ttscore/internal/observe"
	"github.com/synthline/ttscore/internal/resilience"
	"github.com/synthline/ttscore/pkg/hrg"
)

func TestParamsBuildArgs(t *testing.T) {
	p := DefaultParams("/models/zu")
	args := p.BuildArgs("/tmp/in.lab", "/tmp/out.lab", "/tmp/out.wav")

	want := []string{"-td", "-tm", "-tf", "-md", "-mm", "-mf", "-dm", "-df", "-od", "-ow", "-s", "-p", "-a", "-l", "-r"}
	joined := strings.Join(args, " ")
	for _, flag := range want {
		if !strings.Contains(joined, flag) {
			t.Errorf("args %v missing flag %q", args, flag)
		}
	}
	if args[len(args)-1] != "/tmp/in.lab" {
		t.Errorf("last arg = %q, want the label input path", args[len(args)-1])
	}
}

func TestParamsBuildArgsOmitsUnsetFlags(t *testing.T) {
	var p Params
	args := p.BuildArgs("/tmp/in.lab", "/tmp/out.lab", "/tmp/out.wav")
	for _, flag := range []string{"-jm", "-jf", "-k", "-vp", "-i"} {
		for _, a := range args {
			if a == flag {
				t.Errorf("zero-valued Params should omit %q, got args %v", flag, args)
			}
		}
	}
}

func TestMergeOverridesNonZeroFields(t *testing.T) {
	base := DefaultParams("/models/en")
	override := Params{SampleRate: 48000, SpeechRate: 1.2}
	merged := Merge(base, override)

	if merged.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", merged.SampleRate)
	}
	if merged.SpeechRate != 1.2 {
		t.Errorf("SpeechRate = %v, want 1.2", merged.SpeechRate)
	}
	if merged.TreeDur != base.TreeDur {
		t.Errorf("TreeDur = %q, want unchanged %q", merged.TreeDur, base.TreeDur)
	}
}

func TestMergeGammaZeroOverrideHonoredWhenExplicitlySet(t *testing.T) {
	base := DefaultParams("/models/en")
	base.Gamma = 2
	override := Params{}
	override.WithGamma(0)

	merged := Merge(base, override)
	if merged.Gamma != 0 {
		t.Errorf("Gamma = %d, want 0 (explicit override should win)", merged.Gamma)
	}
}

// fakeEngineScript writes a tiny shell script posing as the external
// synthesis engine: it reads the label-in file path (always the last CLI
// argument), writes a fixed RIFF/WAV to the "-ow" path, and writes fixed
// label-out lines to the "-od" path.
func fakeEngineScript(t *testing.T) string {
	t.Helper()
	script := `#!/bin/sh
set -e
od_path=""
ow_path=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-od" ]; then od_path="$arg"; fi
  if [ "$prev" = "-ow" ]; then ow_path="$arg"; fi
  prev="$arg"
done
printf 'pau^k-aa+t=pau 500000\nk^aa-t+pau=pau 1200000\n' > "$od_path"
printf 'RIFF\044\000\000\000WAVEfmt \020\000\000\000\001\000\001\000\200\076\000\000\000\175\000\000\002\000\020\000data\000\000\000\000' > "$ow_path"
`
	f, err := os.CreateTemp("", "fake-engine-*.sh")
	if err != nil {
		t.Fatalf("create fake engine script: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(script); err != nil {
		t.Fatalf("write fake engine script: %v", err)
	}
	f.Close()
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		t.Fatalf("chmod fake engine script: %v", err)
	}
	return f.Name()
}

func buildTwoSegmentUtterance(t *testing.T) *hrg.Utterance {
	t.Helper()
	u := hrg.New(nil)
	segRel := u.Relation("Segment")
	for _, name := range []string{"aa", "t"} {
		seg, err := segRel.AppendItem(nil)
		if err != nil {
			t.Fatalf("append segment: %v", err)
		}
		seg.SetFeature("name", name)
	}
	return u
}

func TestDriverSynthesizeAssignsSegmentEndTimesAndWaveform(t *testing.T) {
	bin := fakeEngineScript(t)
	u := buildTwoSegmentUtterance(t)
	d := NewDriver(bin, DefaultParams(t.TempDir()), nil)

	err := d.Synthesize(context.Background(), u, []string{"pau^k-aa+t=pau", "k^aa-t+pau=pau"}, Params{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	segs := u.Relation("Segment").Items()
	if got := segs[0].Features().Float("end"); got <= 0 {
		t.Errorf("segment[0] end = %v, want > 0", got)
	}
	if got := segs[1].Features().Float("end"); got <= segs[0].Features().Float("end") {
		t.Errorf("segment[1] end = %v, want > segment[0] end %v", got, segs[0].Features().Float("end"))
	}

	if _, ok := u.Features["waveform"]; !ok {
		t.Error("Features[\"waveform\"] not set after successful synthesis")
	}
}

func TestDriverSynthesizeFailurePropagatesAndDoesNotSetWaveform(t *testing.T) {
	u := buildTwoSegmentUtterance(t)
	d := NewDriver("/nonexistent/engine/binary", DefaultParams(t.TempDir()), nil)

	err := d.Synthesize(context.Background(), u, []string{"pau^k-aa+t=pau"}, Params{})
	if err == nil {
		t.Fatal("expected error for nonexistent engine binary, got nil")
	}
	if _, ok := u.Features["waveform"]; ok {
		t.Error("Features[\"waveform\"] should remain unset after a failed synthesis")
	}
}

func TestDriverSynthesizeTripsCircuitBreakerAfterRepeatedFailures(t *testing.T) {
	u := buildTwoSegmentUtterance(t)
	d := NewDriver("/nonexistent/engine/binary", DefaultParams(t.TempDir()), nil)
	d.Breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
		HalfOpenMax:  1,
	})

	for i := 0; i < 2; i++ {
		if err := d.Synthesize(context.Background(), u, []string{"pau"}, Params{}); err == nil {
			t.Fatal("expected failure from nonexistent binary")
		}
	}

	// The breaker should now be open, failing fast without spawning the
	// (still nonexistent) binary again.
	err := d.Synthesize(context.Background(), u, []string{"pau"}, Params{})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want errors.Is(err, resilience.ErrCircuitOpen)", err)
	}
}

func TestDriverSynthesizeRecordsMetrics(t *testing.T) {
	bin := fakeEngineScript(t)
	u := buildTwoSegmentUtterance(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	d := NewDriver(bin, DefaultParams(t.TempDir()), m)

	if err := d.Synthesize(context.Background(), u, []string{"pau^k-aa+t=pau", "k^aa-t+pau=pau"}, Params{}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name == "ttscore.external_engine.duration" {
				found = true
			}
		}
	}
	if !found {
		t.Error("ttscore.external_engine.duration metric not recorded")
	}
}

func TestAssignSegmentEndTimesErrorsOnMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.lab"
	if err := os.WriteFile(path, []byte("onlyonefield\n"), 0o644); err != nil {
		t.Fatalf("write bad label-out file: %v", err)
	}
	u := buildTwoSegmentUtterance(t)
	if err := assignSegmentEndTimes(u, path); err == nil {
		t.Fatal("expected error for malformed label-out line")
	} else {
		t.Logf("got expected error: %v", err)
	}
}

func TestReadLogF0TrackDecodesFloat32LE(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/out.lf0"
	// Two little-endian float32 values: 0.0 and 1.0.
	data := []byte{0, 0, 0, 0, 0, 0, 0x80, 0x3f}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write f0 file: %v", err)
	}
	track, err := readLogF0Track(path, 80, 16000)
	if err != nil {
		t.Fatalf("readLogF0Track: %v", err)
	}
	if len(track.LogF0) != 2 {
		t.Fatalf("got %d frames, want 2", len(track.LogF0))
	}
	if track.LogF0[0] != 0 || track.LogF0[1] != 1 {
		t.Errorf("LogF0 = %v, want [0 1]", track.LogF0)
	}
	if track.Times[1] <= track.Times[0] {
		t.Errorf("Times should be strictly increasing: %v", track.Times)
	}
}
