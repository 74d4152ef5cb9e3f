package uttproc

import (
	"log/slog"

	"github.com/synthline/ttscore/pkg/hrg"
)

// SylStructureRelationName is the tree relation Word -> Syllable -> Segment.
const SylStructureRelationName = "SylStructure"

// pronunciation is the resolved phone/syllable/stress data for one word,
// regardless of which fallback step produced it.
type pronunciation struct {
	phones    []string
	syllables [][]string // nil if not yet syllabified
	syltones  string      // "" if not yet computed
	source    string
}

// resolvePronunciation runs the fallback chain: addendum, then
// dictionary-with-POS, then dictionary-without-POS, then raw map, then
// G2P, then a silence-phone pronunciation. Every step short of the
// dictionary only yields a flat phone list; the dictionary may also
// supply pre-grouped syllables and syltones.
func resolvePronunciation(res *Resources, word, pos string, logger *slog.Logger) pronunciation {
	if res.Addendum != nil {
		if phones, ok := res.Addendum.Lookup(word); ok {
			return pronunciation{phones: phones, source: "addendum"}
		}
	}

	if res.Dict != nil {
		if pos != "" {
			if entry, err := res.Dict.Lookup(word, pos); err == nil {
				return pronunciation{phones: entry.Phones, syllables: entry.Syllables, syltones: entry.SylTones, source: "dict_pos"}
			}
		}
		if entry, err := res.Dict.Lookup(word, ""); err == nil {
			return pronunciation{phones: entry.Phones, syllables: entry.Syllables, syltones: entry.SylTones, source: "dict"}
		}
	}

	if res.RawMap != nil {
		if phones, ok := res.RawMap.Lookup(word); ok {
			return pronunciation{phones: phones, source: "rawmap"}
		}
	}

	if res.G2P != nil {
		if phones, err := res.G2P.PredictWord(word); err == nil {
			return pronunciation{phones: phones, source: "g2p"}
		} else if logger != nil {
			logger.Warn("g2p fallback failed, using silence phone", "word", word, "error", err)
		}
	}

	return pronunciation{phones: []string{res.Phoneset.SilencePhone()}, source: "silence"}
}

// NewPhonetizer returns the phonetizer stage: resolves each Word's
// pronunciation via the fallback chain, syllabifies it (unless the
// dictionary already supplied syllables), computes syltones, and builds
// the Syllable/SylStructure/Segment tree under that Word.
func NewPhonetizer(res *Resources, logger *slog.Logger) StageFunc {
	return func(u *hrg.Utterance, _ string) error {
		wordRel, ok := u.GetRelation("Word")
		if !ok {
			return nil
		}
		sylStructRel := u.Relation(SylStructureRelationName)
		sylRel := u.Relation("Syllable")
		segRel := u.Relation("Segment")

		for _, w := range wordRel.Items() {
			if err := PhonetizeWord(res, w, sylStructRel, sylRel, segRel, logger); err != nil {
				return err
			}
		}
		return nil
	}
}

// PhonetizeWord resolves and attaches the Syllable/SylStructure/Segment
// tree for a single Word item against res. Exported so a multi-language
// voice composition ([voice.MultiVoice]) can phonetize
// individual words against a different sub-voice's [Resources] than the
// one the rest of the utterance uses, without duplicating the fallback
// chain or tree-construction logic that [NewPhonetizer] runs uniformly.
func PhonetizeWord(res *Resources, w hrg.Item, sylStructRel, sylRel, segRel *hrg.Relation, logger *slog.Logger) error {
	word := w.Features().String("name")
	pos := w.Features().String("pos")

	p := resolvePronunciation(res, word, pos, logger)

	syllables := p.syllables
	if syllables == nil {
		syllables = res.Phoneset.Syllabify(p.phones)
	}

	syltones := p.syltones
	if syltones == "" {
		syltones = res.Phoneset.GuessSylStress(syllables)
	}
	if syltones == "" && res.ToneRules != nil {
		if tones, ok := res.ToneRules(word, syllables); ok {
			syltones = tones
		}
	}
	if syltones == "" {
		syltones = zeroTones(len(syllables))
	}

	wordNode, err := sylStructRel.AppendItem(&w)
	if err != nil {
		return err
	}
	w.SetFeature("pronun_source", p.source)

	for i, syl := range syllables {
		sylItem, err := sylRel.AppendItem(nil)
		if err != nil {
			return err
		}
		sylItem.SetFeature("stress", string(stressAt(syltones, i)))

		sylNode, err := wordNode.AddDaughter(&sylItem)
		if err != nil {
			return err
		}

		for _, ph := range syl {
			segItem, err := segRel.AppendItem(nil)
			if err != nil {
				return err
			}
			segItem.SetFeature("name", ph)

			if _, err := sylNode.AddDaughter(&segItem); err != nil {
				return err
			}
		}
	}
	return nil
}

func zeroTones(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = '0'
	}
	return string(out)
}

func stressAt(tones string, i int) byte {
	if i < len(tones) {
		return tones[i]
	}
	return '0'
}
