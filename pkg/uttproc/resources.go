package uttproc

import (
	"github.com/synthline/ttscore/pkg/g2p"
	"github.com/synthline/ttscore/pkg/phoneset"
	"github.com/synthline/ttscore/pkg/pronundict"
)

// Resources bundles everything the built-in stages need from a voice:
// phoneset, lexicons, and G2P rules, plus the small per-language knobs
// the normalizer/phrasifier consult. A [voice.Voice] owns one of these per
// language it supports and builds its [Processor] stages from it, which
// keeps this package free of any dependency back on the voice package.
type Resources struct {
	Phoneset phoneset.Set

	Addendum pronundict.Addendum
	Dict     *pronundict.Dictionary
	RawMap   pronundict.RawMap
	G2P      *g2p.RuleSet

	// Ligatures maps a multi-rune ligature or common substitution (e.g.
	// "æ") to its expansion ("ae"), applied by the normalizer.
	Ligatures map[string]string

	// PhrasingPunctuation lists the punctuation runes that, when found in
	// a token's postpunc, cause the phrasifier to open a new phrase.
	PhrasingPunctuation string

	// PhraseConjunctions lists lowercase words that, for multi-language
	// voices, also open a new phrase when encountered (before the word).
	PhraseConjunctions map[string]bool

	// LanguageLexicons maps a language tag to the set of lowercase words
	// known to belong to it, used by the normalizer's language-tagging
	// heuristic for multi-language voices. Nil for single-language
	// voices.
	LanguageLexicons map[string]map[string]bool

	// DefaultLanguage is the language tag assigned to a Word when no
	// marker, ALL-CAPS heuristic, or lexicon membership applies.
	DefaultLanguage string

	// ToneRules computes per-syllable stress/tone marks from a word's
	// orthographic form when neither the dictionary entry nor the
	// phoneset's GuessSylStress apply. Nil means that fallback step is
	// skipped (the phoneset guess, then zeros, are used instead).
	ToneRules func(word string, syllables [][]string) (string, bool)
}

// DefaultPhrasingPunctuation is the fixed phrasing-punctuation set: a
// Word that is the last daughter of a Token whose postpunc
// contains any of these characters ends the current phrase.
const DefaultPhrasingPunctuation = ".,;:!?"
