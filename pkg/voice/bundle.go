package voice

import (
	"github.com/synthline/ttscore/pkg/engine"
	"github.com/synthline/ttscore/pkg/g2p"
	"github.com/synthline/ttscore/pkg/label"
	"github.com/synthline/ttscore/pkg/phoneset"
	"github.com/synthline/ttscore/pkg/pronundict"
	"github.com/synthline/ttscore/pkg/unitselect"
)

// Bundle is the serializable form of a voice's full object graph:
// everything a loader (internal/voicestore)
// needs to reconstruct a [Voice] via [NewVoice], with no reference back
// to mutable process state such as logging sinks or a live engine
// process handle.
type Bundle struct {
	Name     string `json:"name"`
	Language string `json:"language"`

	PhonesetKind string `json:"phoneset_kind"`

	Addendum pronundict.Addendum `json:"addendum,omitempty"`
	RawMap   pronundict.RawMap   `json:"raw_map,omitempty"`

	DictionaryEntries []BundleDictEntry `json:"dictionary_entries,omitempty"`

	G2PRules   []BundleG2PRule `json:"g2p_rules,omitempty"`
	G2PGnulls  []BundleGnull   `json:"g2p_gnulls,omitempty"`
	G2PWchar   string          `json:"g2p_wchar,omitempty"`

	Ligatures           map[string]string `json:"ligatures,omitempty"`
	PhrasingPunctuation string            `json:"phrasing_punctuation,omitempty"`
	PhraseConjunctions  []string          `json:"phrase_conjunctions,omitempty"`
	DefaultLanguage     string            `json:"default_language,omitempty"`

	Backend          Backend  `json:"backend"`
	FallbackBackends []Backend `json:"fallback_backends,omitempty"`

	// Parametric back end.
	EngineBinary    string        `json:"engine_binary,omitempty"`
	EngineModelsDir string        `json:"engine_models_dir,omitempty"`
	EngineParams    engine.Params `json:"engine_params,omitempty"`
	Tone            bool          `json:"tone,omitempty"`
	Prominence      bool          `json:"prominence,omitempty"`

	// Unit-selection back end.
	CatalogueSource string                  `json:"catalogue_source,omitempty"`
	Pruning         unitselect.PruningConfig `json:"pruning,omitempty"`
}

// BundleDictEntry is one pronunciation dictionary entry in a [Bundle].
type BundleDictEntry struct {
	Word      string   `json:"word"`
	POS       string   `json:"pos,omitempty"`
	Phones    []string `json:"phones,omitempty"`
	Syllables [][]string `json:"syllables,omitempty"`
	SylTones  string   `json:"syltones,omitempty"`
}

// BundleG2PRule is one serialized [g2p.Rule].
type BundleG2PRule struct {
	Grapheme     string `json:"grapheme"`
	LeftContext  string `json:"left_context"`
	RightContext string `json:"right_context"`
	Phoneme      string `json:"phoneme"`
	Ordinal      int    `json:"ordinal"`
}

// BundleGnull is one serialized grapheme-null rule.
type BundleGnull struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// BuildDictionary reconstructs a [pronundict.Dictionary] from b's
// flattened entry list.
func (b *Bundle) BuildDictionary() *pronundict.Dictionary {
	d := pronundict.New()
	for _, e := range b.DictionaryEntries {
		var entry pronundict.Entry
		if len(e.Syllables) > 0 {
			entry = pronundict.NewSyllabifiedEntry(e.Syllables, e.SylTones, e.POS)
		} else {
			entry = pronundict.NewEntry(e.Phones, e.SylTones, e.POS)
		}
		d.AddWord(e.Word, entry)
	}
	return d
}

// BuildG2P reconstructs a [g2p.RuleSet] from b's flattened rule and
// gnull lists.
func (b *Bundle) BuildG2P() *g2p.RuleSet {
	rs := g2p.NewRuleSet()
	for _, r := range b.G2PRules {
		rs.AddRule(g2p.Rule{
			Grapheme:     r.Grapheme,
			LeftContext:  r.LeftContext,
			RightContext: r.RightContext,
			Phoneme:      r.Phoneme,
			Ordinal:      r.Ordinal,
		})
	}
	rs.Finalize()
	for _, gn := range b.G2PGnulls {
		rs.SetGnull(gn.Pattern, gn.Replacement)
	}
	return rs
}

// BuildPhraseConjunctions turns b's flat conjunction-word list into the
// lowercase set form [uttproc.Resources.PhraseConjunctions] expects.
func (b *Bundle) BuildPhraseConjunctions() map[string]bool {
	if len(b.PhraseConjunctions) == 0 {
		return nil
	}
	m := make(map[string]bool, len(b.PhraseConjunctions))
	for _, w := range b.PhraseConjunctions {
		m[w] = true
	}
	return m
}

// BuildLabelBuilder returns the [label.Builder] variant b describes
// (tone and/or prominence groups).
func (b *Bundle) BuildLabelBuilder(ps phoneset.Set) *label.Builder {
	return &label.Builder{Phoneset: ps, Tone: b.Tone, Prominence: b.Prominence}
}
