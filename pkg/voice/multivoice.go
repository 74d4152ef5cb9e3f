package voice

import (
	"context"
	"fmt"

	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/uttproc"
	"github.com/synthline/ttscore/pkg/waveform"
)

// MultiVoice composes several single-language [Voice]s behind one name:
// each Word is tagged with a language by the normalizer and phonetized
// against that language's sub-voice.
//
// The Default voice runs the shared tokenize/normalize/phrasify stages
// (its Resources.LanguageLexicons should cover every language any
// sub-voice claims, so the normalizer's language-tagging heuristic can
// route each Word correctly). Phonetization is then re-run per Word
// against whichever sub-voice its "lang" feature names, so cross-lingual
// segments use that language's phoneset/dictionary/G2P. The synthesis
// back end (unit-selection or parametric) is always the Default voice's.
type MultiVoice struct {
	Name    string
	Default *Voice
	ByLang  map[string]*Voice
}

const (
	stageTokenize  = "multivoice:tokenize"
	stageNormalize = "multivoice:normalize"
	stagePhrasify  = "multivoice:phrasify"
	stagePauses    = "multivoice:pauses"
)

// NewMultiVoice returns a MultiVoice using defaultVoice for tokenize/
// normalize/phrasify and as the fallback phonetizer/back end, with
// byLang supplying per-language-tag sub-voices for phonetization
// (defaultVoice's own language tag need not be present in byLang).
//
// The single-stage process definitions Synthesize needs are registered
// here, once, rather than per-request: defaultVoice.Processor must not
// be mutated after construction is complete and concurrent synthesis
// begins.
func NewMultiVoice(name string, defaultVoice *Voice, byLang map[string]*Voice) *MultiVoice {
	defaultVoice.Processor.Call(stageTokenize, "tokenize", "")
	defaultVoice.Processor.Call(stageNormalize, "normalize", "")
	defaultVoice.Processor.Call(stagePhrasify, "phrasify", "")
	defaultVoice.Processor.Call(stagePauses, "pauses", "")
	return &MultiVoice{Name: name, Default: defaultVoice, ByLang: byLang}
}

// Synthesize mirrors [Voice.Synthesize] but re-phonetizes each Word
// against its tagged sub-voice before building labels or selecting
// units, and prefixes the phone names of any non-default-language
// Segment with that language's tag (e.g. "eng_") so a shared parametric
// model can distinguish them, per LwaziMultiHTSVoice's cross-lingual
// segment naming.
func (mv *MultiVoice) Synthesize(ctx context.Context, text string) (*waveform.Waveform, *hrg.Utterance, error) {
	dv := mv.Default
	u := dv.CreateUtterance()
	u.Features["text"] = text
	u.Features["voice"] = mv.Name

	// Run only the shared front-end stages; phonetization is redone below
	// on a per-word, per-language basis instead of dv's single Resources.
	if err := dv.Processor.Run(stageTokenize, u); err != nil {
		return nil, u, fmt.Errorf("multivoice %s: tokenize: %w", mv.Name, err)
	}
	if err := dv.Processor.Run(stageNormalize, u); err != nil {
		return nil, u, fmt.Errorf("multivoice %s: normalize: %w", mv.Name, err)
	}
	if err := dv.Processor.Run(stagePhrasify, u); err != nil {
		return nil, u, fmt.Errorf("multivoice %s: phrasify: %w", mv.Name, err)
	}

	if err := mv.phonetizeByLanguage(u); err != nil {
		return nil, u, fmt.Errorf("multivoice %s: phonetize: %w", mv.Name, err)
	}
	if err := dv.Processor.Run(stagePauses, u); err != nil {
		return nil, u, fmt.Errorf("multivoice %s: pauses: %w", mv.Name, err)
	}

	dv.recordFallbackMetrics(ctx, u)

	var wf *waveform.Waveform
	var err error
	switch dv.Backend {
	case BackendUnitSelection:
		wf, err = dv.synthesizeUnitSelection(u)
	case BackendParametric:
		wf, err = dv.synthesizeParametric(ctx, u)
	default:
		err = fmt.Errorf("multivoice %s: unknown backend %q", mv.Name, dv.Backend)
	}
	if err != nil {
		return nil, u, err
	}
	u.Features["waveform"] = wf
	return wf, u, nil
}

// phonetizeByLanguage phonetizes each Word against the sub-voice named
// by its "lang" feature (falling back to the Default voice's own
// Resources when no sub-voice matches), prefixing non-default segment
// phone names with "<lang>_".
func (mv *MultiVoice) phonetizeByLanguage(u *hrg.Utterance) error {
	wordRel, ok := u.GetRelation("Word")
	if !ok {
		return nil
	}
	sylStructRel := u.Relation(uttproc.SylStructureRelationName)
	sylRel := u.Relation("Syllable")
	segRel := u.Relation("Segment")

	for _, w := range wordRel.Items() {
		lang := w.Features().String("lang")
		sv, ok := mv.ByLang[lang]
		if !ok || lang == "" || lang == mv.Default.Language {
			if err := uttproc.PhonetizeWord(mv.Default.Resources, w, sylStructRel, sylRel, segRel, nil); err != nil {
				return err
			}
			continue
		}

		before := segRel.Len()
		if err := uttproc.PhonetizeWord(sv.Resources, w, sylStructRel, sylRel, segRel, nil); err != nil {
			return err
		}
		prefixNewSegments(segRel, before, lang)
	}
	return nil
}

// prefixNewSegments renames every Segment item appended to segRel since
// index before with a "<lang>_" prefix on its "name" feature, so the
// shared parametric model sees a distinct cross-lingual phone symbol.
func prefixNewSegments(segRel *hrg.Relation, before int, lang string) {
	items := segRel.Items()
	for i := before; i < len(items); i++ {
		name := items[i].Features().String("name")
		items[i].SetFeature("name", lang+"_"+name)
	}
}
