// Package voice composes the front-end pipeline, phoneset, and a
// synthesis back end (unit-selection or parametric) into the single
// per-voice object the rest of the system treats as immutable after
// construction, so concurrent syntheses can share it read-only.
package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/synthline/ttscore/internal/observe"
	"github.com/synthline/ttscore/internal/resilience"
	"github.com/synthline/ttscore/pkg/engine"
	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/label"
	"github.com/synthline/ttscore/pkg/phoneset"
	"github.com/synthline/ttscore/pkg/unitselect"
	"github.com/synthline/ttscore/pkg/uttproc"
	"github.com/synthline/ttscore/pkg/waveform"
)

// Backend identifies which synthesis back end a Voice drives.
type Backend string

const (
	BackendUnitSelection Backend = "unitselect"
	BackendParametric    Backend = "parametric"
)

// SynthesizeProcessName is the uttproc process name every Voice registers
// its front-end pipeline stages under.
const SynthesizeProcessName = "synthesize"

// Voice bundles a phoneset, G2P ruleset, pronunciation dictionary,
// addendum, front-end processor pipeline, and a synthesis back end.
// Built once by [NewVoice]; every field is read-only thereafter — no
// method on Voice mutates it, so concurrent synthesis goroutines can
// share one *Voice safely.
type Voice struct {
	Name     string
	Language string

	Phoneset  phoneset.Set
	Resources *uttproc.Resources
	Processor *uttproc.Processor

	LabelBuilder *label.Builder

	Backend Backend

	// Unit-selection fields. Populated when Backend == BackendUnitSelection.
	Catalogue unitselect.Catalogue
	Pruning   unitselect.PruningConfig

	// Parametric fields. Populated when Backend == BackendParametric.
	Engine       *engine.Driver
	EngineParams engine.Params

	// FallbackBackends is the configured fallback order, retained for
	// introspection; the breaker-wrapped chain itself lives in fallback.
	FallbackBackends []Backend

	// fallback holds the ordered backend sequence (primary first) wrapped
	// in per-entry circuit breakers. Nil means Backend is used
	// unconditionally and a failure is returned as-is.
	fallback *resilience.FallbackGroup[Backend]

	Metrics *observe.Metrics
}

// Config supplies everything [NewVoice] needs to assemble a Voice's
// front-end pipeline. The caller (typically internal/voicestore) is
// responsible for constructing Resources, Phoneset, and the back-end
// specific fields from a loaded voice bundle.
type Config struct {
	Name     string
	Language string

	Phoneset  phoneset.Set
	Resources *uttproc.Resources

	LabelBuilder *label.Builder

	Backend Backend

	Catalogue unitselect.Catalogue
	Pruning   unitselect.PruningConfig

	Engine       *engine.Driver
	EngineParams engine.Params

	// FallbackBackends lists additional back ends to try, in order, when
	// Backend's synthesis fails — e.g. falling back from parametric to
	// unit-selection when the external engine's circuit breaker is open.
	// Each entry gets its own [resilience.CircuitBreaker] via
	// [resilience.FallbackGroup] so a broken fallback doesn't get retried
	// on every request either.
	FallbackBackends []Backend

	Metrics *observe.Metrics
}

// NewVoice builds a Voice from cfg, wiring the standard front-end
// pipeline (tokenize, normalize, phrasify, phonetize, pauses) under the
// "synthesize" process name.
func NewVoice(cfg Config) (*Voice, error) {
	if cfg.Phoneset == nil {
		return nil, fmt.Errorf("voice: %s: phoneset is required", cfg.Name)
	}
	if cfg.Resources == nil {
		return nil, fmt.Errorf("voice: %s: resources are required", cfg.Name)
	}

	pruning := cfg.Pruning
	if pruning.K == 0 {
		pruning = unitselect.DefaultPruningConfig
	}

	proc := uttproc.NewProcessor()
	proc.RegisterMethod("tokenize", uttproc.NewTokenizer(true, uttproc.DefaultPunctuation))
	proc.RegisterMethod("normalize", uttproc.NewNormalizer(cfg.Resources))
	proc.RegisterMethod("phrasify", uttproc.NewPhrasifier(cfg.Resources))
	proc.RegisterMethod("phonetize", uttproc.NewPhonetizer(cfg.Resources, nil))
	proc.RegisterMethod("pauses", uttproc.NewPauses(cfg.Phoneset))

	proc.Call(SynthesizeProcessName, "tokenize", "")
	proc.Call(SynthesizeProcessName, "normalize", "")
	proc.Call(SynthesizeProcessName, "phrasify", "")
	proc.Call(SynthesizeProcessName, "phonetize", "")
	proc.Call(SynthesizeProcessName, "pauses", "")

	labelBuilder := cfg.LabelBuilder
	if labelBuilder == nil {
		labelBuilder = &label.Builder{Phoneset: cfg.Phoneset}
	}

	var fg *resilience.FallbackGroup[Backend]
	if len(cfg.FallbackBackends) > 0 {
		fg = resilience.NewFallbackGroup(cfg.Backend, "voice:"+cfg.Name+":"+string(cfg.Backend), resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{
				MaxFailures:   3,
				ResetTimeout:  30 * time.Second,
				HalfOpenMax:   1,
				OnStateChange: recordBreakerTrip(cfg.Metrics),
			},
		})
		for _, b := range cfg.FallbackBackends {
			fg.AddFallback("voice:"+cfg.Name+":"+string(b), b)
		}
	}

	return &Voice{
		Name:             cfg.Name,
		Language:         cfg.Language,
		Phoneset:         cfg.Phoneset,
		Resources:        cfg.Resources,
		Processor:        proc,
		LabelBuilder:     labelBuilder,
		Backend:          cfg.Backend,
		Catalogue:        cfg.Catalogue,
		Pruning:          pruning,
		Engine:           cfg.Engine,
		EngineParams:     cfg.EngineParams,
		FallbackBackends: cfg.FallbackBackends,
		fallback:         fg,
		Metrics:          cfg.Metrics,
	}, nil
}

// recordBreakerTrip returns a [resilience.CircuitBreakerConfig.OnStateChange]
// callback reporting every backend-fallback circuit breaker transition to
// metrics, or nil if metrics is nil.
func recordBreakerTrip(metrics *observe.Metrics) func(name string, from, to resilience.State) {
	if metrics == nil {
		return nil
	}
	return func(name string, _, to resilience.State) {
		metrics.RecordCircuitBreakerTrip(context.Background(), name, to.String())
	}
}

// CreateUtterance returns a fresh [hrg.Utterance] referencing v.
func (v *Voice) CreateUtterance() *hrg.Utterance {
	return hrg.New(v)
}

// Synthesize runs text through v's front-end pipeline and back end,
// returning the produced waveform and the utterance it was built from
// (so symbolic content remains inspectable even when synthesis fails).
// This entry point always returns either a non-nil waveform or a nil
// waveform alongside a non-nil error — callers (e.g. internal/server)
// translate a nil waveform into an empty audio payload rather than
// propagating the error to the wire.
func (v *Voice) Synthesize(ctx context.Context, text string) (*waveform.Waveform, *hrg.Utterance, error) {
	ctx, span := observe.StartSynthesisSpan(ctx, v.Name, string(v.Backend))
	defer span.End()

	start := time.Now()
	u := v.CreateUtterance()
	u.Features["text"] = text
	u.Features["voice"] = v.Name

	if err := v.Processor.Run(SynthesizeProcessName, u); err != nil {
		return nil, u, fmt.Errorf("voice %s: front-end pipeline: %w", v.Name, err)
	}

	v.recordFallbackMetrics(ctx, u)

	var wf *waveform.Waveform
	var err error
	if v.fallback != nil {
		wf, err = resilience.ExecuteWithResult(v.fallback, func(b Backend) (*waveform.Waveform, error) {
			return v.synthesizeBackend(ctx, u, b)
		})
	} else {
		wf, err = v.synthesizeBackend(ctx, u, v.Backend)
	}

	if v.Metrics != nil {
		v.Metrics.RecordSynthesis(ctx, v.Name, string(v.Backend), time.Since(start).Seconds())
	}
	if err != nil {
		return nil, u, err
	}
	u.Features["waveform"] = wf
	return wf, u, nil
}

// recordFallbackMetrics reads the "pronun_source" feature the phonetizer
// leaves on every Word (see [uttproc.PhonetizeWord]) and reports which
// fallback-chain step resolved each word's pronunciation.
func (v *Voice) recordFallbackMetrics(ctx context.Context, u *hrg.Utterance) {
	if v.Metrics == nil {
		return
	}
	wordRel, ok := u.GetRelation("Word")
	if !ok {
		return
	}
	for _, w := range wordRel.Items() {
		if src := w.Features().String("pronun_source"); src != "" {
			v.Metrics.RecordDictionaryFallback(ctx, src)
		}
	}
}

// synthesizeBackend dispatches to the back end named by b, regardless of
// v.Backend — used directly when no fallback is configured, and as the
// per-entry function [resilience.FallbackGroup] tries in order otherwise.
func (v *Voice) synthesizeBackend(ctx context.Context, u *hrg.Utterance, b Backend) (*waveform.Waveform, error) {
	switch b {
	case BackendUnitSelection:
		return v.synthesizeUnitSelection(u)
	case BackendParametric:
		return v.synthesizeParametric(ctx, u)
	default:
		return nil, fmt.Errorf("voice %s: unknown backend %q", v.Name, b)
	}
}

func (v *Voice) synthesizeUnitSelection(u *hrg.Utterance) (*waveform.Waveform, error) {
	if v.Catalogue == nil {
		return nil, fmt.Errorf("voice %s: unit-selection backend has no catalogue", v.Name)
	}
	if err := unitselect.BuildHalfPhoneTargetUnits(u, v.Phoneset.SilencePhone()); err != nil {
		return nil, fmt.Errorf("voice %s: build target units: %w", v.Name, err)
	}
	if err := unitselect.SelectUnits(u, v.Catalogue, v.Pruning, unitselect.TargetScore); err != nil {
		return nil, fmt.Errorf("voice %s: unit selection: %w", v.Name, err)
	}
	wf, err := unitselect.ConcatRELPSynth(u)
	if err != nil {
		return nil, fmt.Errorf("voice %s: RELP resynthesis: %w", v.Name, err)
	}
	return wf, nil
}

func (v *Voice) synthesizeParametric(ctx context.Context, u *hrg.Utterance) (*waveform.Waveform, error) {
	if v.Engine == nil {
		return nil, fmt.Errorf("voice %s: parametric backend has no engine driver", v.Name)
	}
	labels := v.LabelBuilder.BuildLabels(u)
	if err := v.Engine.Synthesize(ctx, u, labels, v.EngineParams); err != nil {
		return nil, fmt.Errorf("voice %s: parametric synthesis: %w", v.Name, err)
	}
	wf, _ := u.Features["waveform"].(*waveform.Waveform)
	if wf == nil {
		return nil, fmt.Errorf("voice %s: parametric engine produced no waveform", v.Name)
	}
	return wf, nil
}
