// Package uttproc implements the utterance-processor pipeline: named
// sequences of stages (tokenize, normalize, phrasify, phonetize, pauses)
// that mutate an [hrg.Utterance] in place.
//
// A [Processor] owns a map from process name to an ordered list of
// (method name, sub-process name) pairs, mirroring the original dynamic
// dispatch-by-name mechanism without resorting to reflection: stage
// functions are registered under a name once, at voice-construction time,
// and looked up by that name on every synthesis.
package uttproc

import (
	"fmt"

	"github.com/synthline/ttscore/pkg/hrg"
)

// UttProcessorError is returned by the tokenizer when the utterance has no
// text to process. This is the one stage failure that aborts the
// utterance rather than merely logging and returning.
type UttProcessorError struct {
	Reason string
}

func (e *UttProcessorError) Error() string { return "uttproc: " + e.Reason }

// ProcessNotDefinedError is returned by [Processor.Run] when the named
// process has no registered stage list. Like [UttProcessorError], this
// aborts the utterance.
type ProcessNotDefinedError struct {
	Process string
}

func (e *ProcessNotDefinedError) Error() string {
	return fmt.Sprintf("uttproc: process %q not defined", e.Process)
}

// StageFunc is one pipeline stage: given the utterance and the
// sub-process name it was invoked with, it mutates the utterance in
// place. A stage that cannot proceed (a
// required relation is missing) should log and return nil rather than
// propagate an error that would abort unrelated stages; only the
// tokenizer's input check and process-not-defined condition abort.
type StageFunc func(u *hrg.Utterance, subProcess string) error

// stageCall is one (method name, sub-process name) pair in a process
// definition.
type stageCall struct {
	Method string
	Sub    string
}

// Processor dispatches named processes to ordered lists of registered
// stage methods, replacing the original's virtual-inheritance-based
// dynamic dispatch with name-keyed maps.
type Processor struct {
	methods   map[string]StageFunc
	processes map[string][]stageCall
}

// NewProcessor returns an empty, ready-to-configure Processor.
func NewProcessor() *Processor {
	return &Processor{
		methods:   make(map[string]StageFunc),
		processes: make(map[string][]stageCall),
	}
}

// RegisterMethod adds or replaces the stage implementation registered
// under name.
func (p *Processor) RegisterMethod(name string, fn StageFunc) {
	p.methods[name] = fn
}

// Call appends one (method, sub-process) pair to process's stage list,
// creating the process if necessary, and returns p for chaining.
func (p *Processor) Call(process, method, sub string) *Processor {
	p.processes[process] = append(p.processes[process], stageCall{Method: method, Sub: sub})
	return p
}

// Run executes every stage registered under processName, in order,
// passing u and each stage's configured sub-process name.
//
// Returns [ProcessNotDefinedError] if processName (or one of its stage
// method names) has no registration. An individual stage should itself
// log and return nil when it can't
// proceed (a required relation is missing); the only stage error that
// reaches here and aborts the utterance is the tokenizer's
// [UttProcessorError] for empty input.
func (p *Processor) Run(processName string, u *hrg.Utterance) error {
	calls, ok := p.processes[processName]
	if !ok {
		return &ProcessNotDefinedError{Process: processName}
	}
	for _, call := range calls {
		fn, ok := p.methods[call.Method]
		if !ok {
			return &ProcessNotDefinedError{Process: call.Method}
		}
		if err := fn(u, call.Sub); err != nil {
			return err
		}
	}
	return nil
}
