// Package unitselect implements the concatenative unit-selection
// synthesizer: target-unit construction (half-phone and word
// variants), a pruned Viterbi search over a unit catalogue, and
// residual-excited LPC (RELP) resynthesis of the selected sequence.
package unitselect

import (
	"fmt"

	"github.com/synthline/ttscore/pkg/hrg"
)

// UnitRelationName is the relation target units (and, after selection,
// their chosen candidates) are built into.
const UnitRelationName = "Unit"

// position labels mirror the original's "initial"/"medial"/"final"/"" four-
// way classification of an item's location among its siblings.
const (
	PositionInitial = "initial"
	PositionMedial  = "medial"
	PositionFinal   = "final"
	PositionNone    = ""
)

func siblingPosition(it hrg.Item) string {
	_, hasNext := it.Next()
	_, hasPrev := it.Prev()
	switch {
	case hasNext && hasPrev:
		return PositionMedial
	case hasNext && !hasPrev:
		return PositionInitial
	case !hasNext && hasPrev:
		return PositionFinal
	default:
		return PositionNone
	}
}

// CountSyls returns the number of syllables in seg's enclosing word, or 0
// if seg is not in SylStructure.
func CountSyls(seg hrg.Item) int {
	node, ok := seg.InRelation("SylStructure")
	if !ok {
		return 0
	}
	syl, ok := node.Parent()
	if !ok {
		return 0
	}
	word, ok := syl.Parent()
	if !ok {
		return 0
	}
	return word.NumDaughters()
}

// SylPositionOf returns seg's position among its syllable's segments.
func SylPositionOf(seg hrg.Item) string {
	node, ok := seg.InRelation("SylStructure")
	if !ok {
		return PositionNone
	}
	return siblingPosition(node)
}

// WordPositionOf returns seg's syllable's position among its word's
// syllables.
func WordPositionOf(seg hrg.Item) string {
	node, ok := seg.InRelation("SylStructure")
	if !ok {
		return PositionNone
	}
	syl, ok := node.Parent()
	if !ok {
		return PositionNone
	}
	return siblingPosition(syl)
}

// PhrasePositionOf returns seg's word's position among its phrase's words.
func PhrasePositionOf(seg hrg.Item) string {
	node, ok := seg.InRelation("SylStructure")
	if !ok {
		return PositionNone
	}
	syl, ok := node.Parent()
	if !ok {
		return PositionNone
	}
	word, ok := syl.Parent()
	if !ok {
		return PositionNone
	}
	inPhrase, ok := word.InRelation("Phrase")
	if !ok {
		return PositionNone
	}
	return siblingPosition(inPhrase)
}

func segName(seg hrg.Item) string { return seg.Features().String("name") }

// BuildHalfPhoneTargetUnits builds one (or two, at non-boundary
// positions) target Unit item(s) per Segment: a "left-<phone>" unit and a
// "right-<phone>" unit, each a daughter of that Segment. Boundary-pause
// suppression happens here: the very first segment's left half and the very last
// segment's right half are both omitted when that segment is the silence
// phone, so [ConcatRELPSynth] never has to special-case a missing
// neighbor at the edges.
func BuildHalfPhoneTargetUnits(u *hrg.Utterance, silencePhone string) error {
	segRel, ok := u.GetRelation("Segment")
	if !ok {
		return fmt.Errorf("unitselect: utterance has no Segment relation")
	}
	unitRel := u.Relation(UnitRelationName)
	seglist := segRel.Items()

	for i, seg := range seglist {
		numSyls := CountSyls(seg)
		posSyl := SylPositionOf(seg)
		posWord := WordPositionOf(seg)
		posPhrase := PhrasePositionOf(seg)

		var nextName, prevName string
		if next, ok := seg.Next(); ok {
			nextName = segName(next)
		}
		if prev, ok := seg.Prev(); ok {
			prevName = segName(prev)
		}

		name := segName(seg)

		if !(i == 0 && name == silencePhone) {
			if err := appendHalfPhoneUnit(unitRel, seg, "left-"+name, numSyls, posSyl, posWord, posPhrase, nextName, prevName); err != nil {
				return err
			}
		}
		if !(i == len(seglist)-1 && name == silencePhone) {
			if err := appendHalfPhoneUnit(unitRel, seg, "right-"+name, numSyls, posSyl, posWord, posPhrase, nextName, prevName); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendHalfPhoneUnit(unitRel *hrg.Relation, seg hrg.Item, name string, numSyls int, posSyl, posWord, posPhrase, nextName, prevName string) error {
	unit, err := unitRel.AppendItem(nil)
	if err != nil {
		return err
	}
	unit.SetFeature("name", name)
	unit.SetFeature("num_syls", numSyls)
	unit.SetFeature("position_in_syl", posSyl)
	unit.SetFeature("position_in_word", posWord)
	unit.SetFeature("position_in_phrase", posPhrase)
	unit.SetFeature("context_nextsegment", nextName)
	unit.SetFeature("context_prevsegment", prevName)
	_, err = seg.AddDaughter(&unit)
	return err
}

// BuildWordTargetUnits builds one target Unit item per Word, tagged with
// its previous/next word context, per the word-unit variant
// (SynthesizerUSWordUnits.targetunits in the original).
func BuildWordTargetUnits(u *hrg.Utterance) error {
	wordRel, ok := u.GetRelation("Word")
	if !ok {
		return fmt.Errorf("unitselect: utterance has no Word relation")
	}
	unitRel := u.Relation(UnitRelationName)

	for _, word := range wordRel.Items() {
		var nextName, prevName string
		if next, ok := word.Next(); ok {
			nextName = next.Features().String("name")
		}
		if prev, ok := word.Prev(); ok {
			prevName = prev.Features().String("name")
		}

		unit, err := unitRel.AppendItem(nil)
		if err != nil {
			return err
		}
		unit.SetFeature("name", word.Features().String("name"))
		unit.SetFeature("context_nextword", nextName)
		unit.SetFeature("context_prevword", prevName)
		if _, err := word.AddDaughter(&unit); err != nil {
			return err
		}
	}
	return nil
}
