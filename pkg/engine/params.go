// Package engine drives the external parametric synthesis binary:
// it merges per-voice and per-utterance engine parameters, materializes the
// full-context label list to a scoped temporary file, invokes the external
// engine, and reads back per-phone durations and the produced waveform (plus,
// for tone voices, a log-F0 track).
//
// Grounded on original_source/ttslab/synthesizer_hts.py's SynthesizerHTS:
// DEFAULT_PARMS, the hts_label/hts_synth process split, and the
// tempfile-per-invocation + cleanup-on-every-exit-path discipline.
package engine

import (
	"fmt"
	"strconv"
)

// Params holds one parameter set for the external parametric engine,
// one field per recognized command-line option. A zero-valued
// string/float/int field means
// "not set"; [Merge] lets per-utterance overrides replace only the fields
// they set.
type Params struct {
	// Decision-tree files for duration/spectrum/log-F0/low-pass/GV.
	TreeDur, TreeSpectrum, TreeLogF0, TreeLowPass string
	TreeGVSpectrum, TreeGVLogF0, TreeGVLowPass    string

	// Model PDFs for the same families, plus GV PDFs.
	ModelDur, ModelSpectrum, ModelLogF0, ModelLowPass string
	GVSpectrum, GVLogF0, GVLowPass                    string

	// Delta windows for spectrum/log-F0/low-pass, space-separated paths.
	DeltaSpectrum, DeltaLogF0, DeltaLowPass []string

	// Output paths. OutDuration/OutWav are always produced by this
	// driver via scoped temp files; the rest are optional.
	OutSpectrum, OutLogF0, OutLowPass, OutRaw, OutTrace string

	// InLogF0 is the input log-F0 file path ("-qp").
	InLogF0 string

	// UsePhonemeAlignment is the "-vp" flag.
	UsePhonemeAlignment bool

	// Interpolation ("-i"): number of streams and coefficients. Empty
	// means the flag is omitted.
	Interpolation []string

	// SampleRate ("-s"), default 16000.
	SampleRate int
	// FramePeriod ("-p") in samples, default 80.
	FramePeriod int
	// AllPassConstant ("-a"), default 0.42.
	AllPassConstant float64
	// Gamma ("-g"), default 0.
	Gamma int
	// PostFilterCoef ("-b").
	PostFilterCoef float64
	// LogGain is the "-l" flag.
	LogGain bool
	// SpeechRate ("-r"), default 1.0.
	SpeechRate float64
	// HalfToneShift ("-fm").
	HalfToneShift float64
	// VoicedThreshold ("-u").
	VoicedThreshold float64

	// GV weights ("-jm -jf -jl").
	GVWeightSpectrum, GVWeightLogF0, GVWeightLowPass float64
	// GVSwitch is the GV switch decision tree ("-k").
	GVSwitch string
	// AudioBufferSize ("-z").
	AudioBufferSize int

	// set tracks which numeric fields were explicitly assigned, so Merge
	// can distinguish "explicitly 0" from "not set" for fields whose zero
	// value is itself meaningful (Gamma, VoicedThreshold).
	set map[string]bool
}

// markSet records that field was explicitly assigned a value (as opposed to
// left at its Go zero value), for use by [Merge].
func (p *Params) markSet(field string) {
	if p.set == nil {
		p.set = make(map[string]bool)
	}
	p.set[field] = true
}

// WithGamma sets Gamma and records it as explicitly set (Gamma's default,
// 0, is itself a meaningful value distinct from "unset").
func (p *Params) WithGamma(g int) *Params {
	p.Gamma = g
	p.markSet("gamma")
	return p
}

// DefaultParams returns the engine's baseline parameter set, mirroring
// SynthesizerHTS.DEFAULT_PARMS: tree/model/GV paths templated against
// modelsDir, sample rate 16000, frame period 80, all-pass 0.42, log-gain
// on, speech rate 1.0.
func DefaultParams(modelsDir string) Params {
	path := func(name string) string { return fmt.Sprintf("%s/%s", modelsDir, name) }
	return Params{
		TreeDur:         path("tree-dur.inf"),
		TreeSpectrum:    path("tree-mgc.inf"),
		TreeLogF0:       path("tree-lf0.inf"),
		ModelDur:        path("dur.pdf"),
		ModelSpectrum:   path("mgc.pdf"),
		ModelLogF0:      path("lf0.pdf"),
		DeltaSpectrum:   []string{path("mgc.win1"), path("mgc.win2"), path("mgc.win3")},
		DeltaLogF0:      []string{path("lf0.win1"), path("lf0.win2"), path("lf0.win3")},
		SampleRate:      16000,
		FramePeriod:     80,
		AllPassConstant: 0.42,
		LogGain:         true,
		SpeechRate:      1.0,
		TreeGVSpectrum:  path("tree-gv-mgc.inf"),
		TreeGVLogF0:     path("tree-gv-lf0.inf"),
		GVSpectrum:      path("gv-mgc.pdf"),
		GVLogF0:         path("gv-lf0.pdf"),
		GVSwitch:        path("gv-switch.inf"),
	}
}

// Merge overlays non-zero fields of override onto base and returns the
// result, mirroring the original's dict.update per-utterance "htsparms"
// override mechanism. A numeric field explicitly marked via With* setters
// always wins even when its value is the Go zero value.
func Merge(base, override Params) Params {
	out := base
	if override.TreeDur != "" {
		out.TreeDur = override.TreeDur
	}
	if override.TreeSpectrum != "" {
		out.TreeSpectrum = override.TreeSpectrum
	}
	if override.TreeLogF0 != "" {
		out.TreeLogF0 = override.TreeLogF0
	}
	if override.TreeLowPass != "" {
		out.TreeLowPass = override.TreeLowPass
	}
	if override.TreeGVSpectrum != "" {
		out.TreeGVSpectrum = override.TreeGVSpectrum
	}
	if override.TreeGVLogF0 != "" {
		out.TreeGVLogF0 = override.TreeGVLogF0
	}
	if override.TreeGVLowPass != "" {
		out.TreeGVLowPass = override.TreeGVLowPass
	}
	if override.ModelDur != "" {
		out.ModelDur = override.ModelDur
	}
	if override.ModelSpectrum != "" {
		out.ModelSpectrum = override.ModelSpectrum
	}
	if override.ModelLogF0 != "" {
		out.ModelLogF0 = override.ModelLogF0
	}
	if override.ModelLowPass != "" {
		out.ModelLowPass = override.ModelLowPass
	}
	if override.GVSpectrum != "" {
		out.GVSpectrum = override.GVSpectrum
	}
	if override.GVLogF0 != "" {
		out.GVLogF0 = override.GVLogF0
	}
	if override.GVLowPass != "" {
		out.GVLowPass = override.GVLowPass
	}
	if len(override.DeltaSpectrum) > 0 {
		out.DeltaSpectrum = override.DeltaSpectrum
	}
	if len(override.DeltaLogF0) > 0 {
		out.DeltaLogF0 = override.DeltaLogF0
	}
	if len(override.DeltaLowPass) > 0 {
		out.DeltaLowPass = override.DeltaLowPass
	}
	if override.OutSpectrum != "" {
		out.OutSpectrum = override.OutSpectrum
	}
	if override.OutLogF0 != "" {
		out.OutLogF0 = override.OutLogF0
	}
	if override.OutLowPass != "" {
		out.OutLowPass = override.OutLowPass
	}
	if override.OutRaw != "" {
		out.OutRaw = override.OutRaw
	}
	if override.OutTrace != "" {
		out.OutTrace = override.OutTrace
	}
	if override.InLogF0 != "" {
		out.InLogF0 = override.InLogF0
	}
	if override.UsePhonemeAlignment {
		out.UsePhonemeAlignment = true
	}
	if len(override.Interpolation) > 0 {
		out.Interpolation = override.Interpolation
	}
	if override.SampleRate != 0 {
		out.SampleRate = override.SampleRate
	}
	if override.FramePeriod != 0 {
		out.FramePeriod = override.FramePeriod
	}
	if override.AllPassConstant != 0 {
		out.AllPassConstant = override.AllPassConstant
	}
	if override.set["gamma"] {
		out.Gamma = override.Gamma
	}
	if override.PostFilterCoef != 0 {
		out.PostFilterCoef = override.PostFilterCoef
	}
	if override.LogGain {
		out.LogGain = true
	}
	if override.SpeechRate != 0 {
		out.SpeechRate = override.SpeechRate
	}
	if override.HalfToneShift != 0 {
		out.HalfToneShift = override.HalfToneShift
	}
	if override.set["voiced_threshold"] || override.VoicedThreshold != 0 {
		out.VoicedThreshold = override.VoicedThreshold
	}
	if override.GVWeightSpectrum != 0 {
		out.GVWeightSpectrum = override.GVWeightSpectrum
	}
	if override.GVWeightLogF0 != 0 {
		out.GVWeightLogF0 = override.GVWeightLogF0
	}
	if override.GVWeightLowPass != 0 {
		out.GVWeightLowPass = override.GVWeightLowPass
	}
	if override.GVSwitch != "" {
		out.GVSwitch = override.GVSwitch
	}
	if override.AudioBufferSize != 0 {
		out.AudioBufferSize = override.AudioBufferSize
	}
	return out
}

// BuildArgs renders p (plus the three scoped temp file paths this driver
// always supplies) into the external engine's command-line argument list.
func (p Params) BuildArgs(labelInPath, durOutPath, wavOutPath string) []string {
	var args []string
	add := func(flag, value string) {
		if value != "" {
			args = append(args, flag, value)
		}
	}
	addFlag := func(flag string, on bool) {
		if on {
			args = append(args, flag)
		}
	}
	multi := func(flag string, values []string) {
		for _, v := range values {
			add(flag, v)
		}
	}

	add("-td", p.TreeDur)
	add("-tm", p.TreeSpectrum)
	add("-tf", p.TreeLogF0)
	add("-tl", p.TreeLowPass)
	add("-md", p.ModelDur)
	add("-mm", p.ModelSpectrum)
	add("-mf", p.ModelLogF0)
	add("-ml", p.ModelLowPass)
	multi("-dm", p.DeltaSpectrum)
	multi("-df", p.DeltaLogF0)
	multi("-dl", p.DeltaLowPass)
	add("-od", durOutPath)
	add("-om", p.OutSpectrum)
	add("-of", p.OutLogF0)
	add("-ol", p.OutLowPass)
	add("-or", p.OutRaw)
	add("-ow", wavOutPath)
	add("-ot", p.OutTrace)
	add("-qp", p.InLogF0)
	addFlag("-vp", p.UsePhonemeAlignment)
	if len(p.Interpolation) > 0 {
		args = append(args, "-i")
		args = append(args, p.Interpolation...)
	}
	if p.SampleRate != 0 {
		args = append(args, "-s", strconv.Itoa(p.SampleRate))
	}
	if p.FramePeriod != 0 {
		args = append(args, "-p", strconv.Itoa(p.FramePeriod))
	}
	if p.AllPassConstant != 0 {
		args = append(args, "-a", strconv.FormatFloat(p.AllPassConstant, 'g', -1, 64))
	}
	if p.set["gamma"] || p.Gamma != 0 {
		args = append(args, "-g", strconv.Itoa(p.Gamma))
	}
	if p.PostFilterCoef != 0 {
		args = append(args, "-b", strconv.FormatFloat(p.PostFilterCoef, 'g', -1, 64))
	}
	addFlag("-l", p.LogGain)
	if p.SpeechRate != 0 {
		args = append(args, "-r", strconv.FormatFloat(p.SpeechRate, 'g', -1, 64))
	}
	if p.HalfToneShift != 0 {
		args = append(args, "-fm", strconv.FormatFloat(p.HalfToneShift, 'g', -1, 64))
	}
	if p.set["voiced_threshold"] || p.VoicedThreshold != 0 {
		args = append(args, "-u", strconv.FormatFloat(p.VoicedThreshold, 'g', -1, 64))
	}
	add("-em", p.TreeGVSpectrum)
	add("-ef", p.TreeGVLogF0)
	add("-el", p.TreeGVLowPass)
	add("-cm", p.GVSpectrum)
	add("-cf", p.GVLogF0)
	add("-cl", p.GVLowPass)
	if p.GVWeightSpectrum != 0 {
		args = append(args, "-jm", strconv.FormatFloat(p.GVWeightSpectrum, 'g', -1, 64))
	}
	if p.GVWeightLogF0 != 0 {
		args = append(args, "-jf", strconv.FormatFloat(p.GVWeightLogF0, 'g', -1, 64))
	}
	if p.GVWeightLowPass != 0 {
		args = append(args, "-jl", strconv.FormatFloat(p.GVWeightLowPass, 'g', -1, 64))
	}
	add("-k", p.GVSwitch)
	if p.AudioBufferSize != 0 {
		args = append(args, "-z", strconv.Itoa(p.AudioBufferSize))
	}
	args = append(args, labelInPath)
	return args
}
