package uttproc

import (
	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/phoneset"
)

// NewPauses returns the pauses stage: prepends a silence Segment at the
// head of the Segment relation, and appends one silence Segment
// immediately after the last Segment under each Phrase's last Word.
// Pause segments are fresh content, deliberately not
// linked into SylStructure (the one exception to "every Segment content is
// also in SylStructure").
func NewPauses(ps phoneset.Set) StageFunc {
	return func(u *hrg.Utterance, _ string) error {
		segRel, ok := u.GetRelation("Segment")
		if !ok {
			return nil
		}
		phraseRel, ok := u.GetRelation("Phrase")
		if !ok {
			return nil
		}

		head, err := segRel.PrependItem(nil)
		if err != nil {
			return err
		}
		head.SetFeature("name", ps.SilencePhone())
		head.SetFeature("pause", true)

		for _, phrase := range phraseRel.Items() {
			lastWord, ok := phrase.LastDaughter()
			if !ok {
				continue
			}
			lastSeg, ok := lastSegmentOfWord(lastWord)
			if !ok {
				continue
			}
			pause, err := segRel.InsertItemAfter(lastSeg, nil)
			if err != nil {
				return err
			}
			pause.SetFeature("name", ps.SilencePhone())
			pause.SetFeature("pause", true)
		}
		return nil
	}
}

// lastSegmentOfWord walks word -> SylStructure -> last Syllable -> last
// Segment -> the flat Segment relation item sharing that content.
func lastSegmentOfWord(word hrg.Item) (hrg.Item, bool) {
	node, ok := word.InRelation(SylStructureRelationName)
	if !ok {
		return hrg.Item{}, false
	}
	syl, ok := node.LastDaughter()
	if !ok {
		return hrg.Item{}, false
	}
	segNode, ok := syl.LastDaughter()
	if !ok {
		return hrg.Item{}, false
	}
	return segNode.InRelation("Segment")
}
