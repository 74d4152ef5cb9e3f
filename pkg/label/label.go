// Package label builds HTS-style full-context phone labels from a
// synthesized utterance's Segment relation: eleven fixed groups (p, A..J)
// per segment, joined by "/", with an optional leading duration pair and
// optional tone/prominence group variants.
package label

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synthline/ttscore/pkg/features"
	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/phoneset"
)

// NoneString is the placeholder for a missing string-valued field.
const NoneString = "xxx"

// Builder constructs full-context labels for one voice's phoneset.
type Builder struct {
	Phoneset phoneset.Set

	// Prominence swaps group B's accent-context field (b2) from the
	// previous syllable's "accent" feature to the current word's "prom"
	// feature.
	Prominence bool

	// Tone adds the K/L/M/N tone groups (current/previous/previous-
	// previous/next syllable tone) used by tone-language voices.
	Tone bool
}

func noneString(s string) string {
	if s == "" {
		return NoneString
	}
	return s
}

// FloatToHTKInt converts a duration in seconds to an integer in 100ns
// units, the wire format HTS label files use for start/end times.
func FloatToHTKInt(seconds float64) int64 {
	return int64(seconds*10000000 + 0.5)
}

// HTKIntToFloat is the inverse of [FloatToHTKInt].
func HTKIntToFloat(htk int64) float64 {
	return float64(htk) / 10000000.0
}

// BuildLabels returns one full-context label line per Segment item in u,
// in Segment order, each prefixed with a right-justified start/end time
// pair (100ns units) when that Segment carries an "end" feature (seconds),
// per synthesizer_hts.py's hts_label.
func (b *Builder) BuildLabels(u *hrg.Utterance) []string {
	segRel, ok := u.GetRelation("Segment")
	if !ok {
		return nil
	}

	var lines []string
	var startTime int64
	for _, seg := range segRel.Items() {
		line := b.BuildSegmentLabel(seg)

		if seg.Features().Has("end") {
			endTime := FloatToHTKInt(seg.Features().Float("end"))
			lines = append(lines, fmt.Sprintf("%10s %10s %s", strconv.FormatInt(startTime, 10), strconv.FormatInt(endTime, 10), line))
			startTime = endTime
		} else {
			lines = append(lines, line)
		}
	}
	return lines
}

// BuildSegmentLabel returns the joined p/A/B/C/D/E/F/G/H/I/J (and,
// when configured, K/L/M/N) groups for one Segment item.
func (b *Builder) BuildSegmentLabel(seg hrg.Item) string {
	groups := []string{
		b.groupP(seg),
		b.groupA(seg),
		b.groupB(seg),
		b.groupC(seg),
		b.groupD(seg),
		b.groupE(seg),
		b.groupF(seg),
		b.groupG(seg),
		b.groupH(seg),
		b.groupI(seg),
		b.groupJ(seg),
	}
	if b.Tone {
		groups = append(groups, b.groupTone(seg)...)
	}
	return strings.Join(groups, "/")
}

func (b *Builder) symbolAt(seg hrg.Item, steps int) string {
	cur := seg
	for ; steps > 0; steps-- {
		next, ok := cur.Next()
		if !ok {
			return ""
		}
		cur = next
	}
	for ; steps < 0; steps++ {
		prev, ok := cur.Prev()
		if !ok {
			return ""
		}
		cur = prev
	}
	if !cur.Features().Has("name") {
		return ""
	}
	return b.Phoneset.BackendSymbol(cur.Features().String("name"))
}

func (b *Builder) groupP(seg hrg.Item) string {
	p1 := noneString(b.symbolAt(seg, -2))
	p2 := noneString(b.symbolAt(seg, -1))

	var p3 string
	if hts := seg.Features().String("hts_symbol"); hts != "" {
		p3 = hts
	} else {
		p3 = b.Phoneset.BackendSymbol(seg.Features().String("name"))
	}

	p4 := noneString(b.symbolAt(seg, 1))
	p5 := noneString(b.symbolAt(seg, 2))
	p6 := features.SegPosInSylForward(seg)
	p7 := features.SegPosInSylBackward(seg)

	return fmt.Sprintf("%s^%s-%s+%s=%s@%d_%d", p1, p2, p3, p4, p5, p6, p7)
}

// sylStructNode returns the SylStructure syllable node seg belongs to (the
// parent of seg's own SylStructure node), if any.
func sylStructNode(seg hrg.Item) (hrg.Item, bool) {
	node, ok := seg.InRelation("SylStructure")
	if !ok {
		return hrg.Item{}, false
	}
	return node.Parent()
}

func (b *Builder) groupA(seg hrg.Item) string {
	sylNode, ok := sylStructNode(seg)
	if !ok {
		return "A:0_0_0"
	}
	flatSyl, ok := sylNode.InRelation("Syllable")
	if !ok {
		return "A:0_0_0"
	}
	prevSyl, ok := flatSyl.Prev()
	if !ok {
		return "A:0_0_0"
	}
	prevNode, ok := prevSyl.InRelation("SylStructure")
	if !ok {
		return "A:0_0_0"
	}
	a1 := prevNode.Features().Int("stress")
	a2 := prevNode.Features().Int("accent")
	a3 := prevNode.NumDaughters()
	return fmt.Sprintf("A:%d_%d_%d", a1, a2, a3)
}

func (b *Builder) groupB(seg hrg.Item) string {
	sylNode, ok := sylStructNode(seg)
	if !ok {
		return "B:0-0-0@0-0&0-0#0-0$0-0!0-0;0-0|" + NoneString
	}

	b1 := sylNode.Features().Int("stress")
	var b2 int
	if b.Prominence {
		if wordNode, ok := sylNode.Parent(); ok {
			b2 = wordNode.Features().Int("prom")
		}
	} else {
		flatSyl, ok := sylNode.InRelation("Syllable")
		if ok {
			if prevSyl, ok := flatSyl.Prev(); ok {
				if prevNode, ok := prevSyl.InRelation("SylStructure"); ok {
					b2 = prevNode.Features().Int("accent")
				}
			}
		}
	}
	b3 := sylNode.NumDaughters()
	b4 := features.SylPosInWordForward(sylNode)
	b5 := features.SylPosInWordBackward(sylNode)
	b6 := features.SylPosInPhraseForward(sylNode)
	b7 := features.SylPosInPhraseBackward(sylNode)
	b8 := features.SylsBeforeSylInPhrase(sylNode, "stress", "1")
	b9 := features.SylsAfterSylInPhrase(sylNode, "stress", "1")
	b10 := features.SylsBeforeSylInPhrase(sylNode, "accent", "1")
	b11 := features.SylsAfterSylInPhrase(sylNode, "accent", "1")
	b12 := features.SylDistPrev(sylNode, "stress", "1")
	b13 := features.SylDistNext(sylNode, "stress", "1")
	b14 := features.SylDistPrev(sylNode, "accent", "1")
	b15 := features.SylDistNext(sylNode, "accent", "1")
	b16 := noneString(b.vowelSymbol(sylNode))

	return fmt.Sprintf("B:%d-%d-%d@%d-%d&%d-%d#%d-%d$%d-%d!%d-%d;%d-%d|%s",
		b1, b2, b3, b4, b5, b6, b7, b8, b9, b10, b11, b12, b13, b14, b15, b16)
}

// vowelSymbol returns the back-end symbol of the first vowel segment
// among sylNode's daughters, or "" if none.
func (b *Builder) vowelSymbol(sylNode hrg.Item) string {
	for _, seg := range sylNode.Daughters() {
		name := seg.Features().String("name")
		if b.Phoneset.IsVowel(name) {
			return b.Phoneset.BackendSymbol(name)
		}
	}
	return ""
}

func (b *Builder) groupC(seg hrg.Item) string {
	sylNode, ok := sylStructNode(seg)
	if !ok {
		return "C:0+0+0"
	}
	flatSyl, ok := sylNode.InRelation("Syllable")
	if !ok {
		return "C:0+0+0"
	}
	nextSyl, ok := flatSyl.Next()
	if !ok {
		return "C:0+0+0"
	}
	nextNode, ok := nextSyl.InRelation("SylStructure")
	if !ok {
		return "C:0+0+0"
	}
	return fmt.Sprintf("C:%d+%d+%d", nextNode.Features().Int("stress"), nextNode.Features().Int("accent"), nextNode.NumDaughters())
}

// wordNodeOf returns the SylStructure word node owning seg.
func wordNodeOf(seg hrg.Item) (hrg.Item, bool) {
	sylNode, ok := sylStructNode(seg)
	if !ok {
		return hrg.Item{}, false
	}
	return sylNode.Parent()
}

func (b *Builder) groupD(seg hrg.Item) string {
	wordNode, ok := wordNodeOf(seg)
	if !ok {
		return "D:" + NoneString + "_0"
	}
	flatWord, ok := wordNode.InRelation("Word")
	if !ok {
		return "D:" + NoneString + "_0"
	}
	prevWord, ok := flatWord.Prev()
	if !ok {
		return "D:" + NoneString + "_0"
	}
	prevNode, ok := prevWord.InRelation("SylStructure")
	if !ok {
		return "D:" + NoneString + "_0"
	}
	return fmt.Sprintf("D:%s_%d", noneString(prevNode.Features().String("gpos")), prevNode.NumDaughters())
}

func (b *Builder) groupE(seg hrg.Item) string {
	wordNode, ok := wordNodeOf(seg)
	if !ok {
		return "E:" + NoneString + "+0@0+0&0+0#0+0"
	}
	e1 := noneString(wordNode.Features().String("gpos"))
	e2 := wordNode.NumDaughters()
	e3 := features.WordPosInPhraseForward(wordNode)
	e4 := features.WordPosInPhraseBackward(wordNode)
	e5 := features.WordsBeforeSylInPhrase(wordNode, "content", "1")
	e6 := features.WordsAfterSylInPhrase(wordNode, "content", "1")
	e7 := features.WordDistPrev(wordNode, "content", "1")
	e8 := features.WordDistNext(wordNode, "content", "1")
	return fmt.Sprintf("E:%s+%d@%d+%d&%d+%d#%d+%d", e1, e2, e3, e4, e5, e6, e7, e8)
}

func (b *Builder) groupF(seg hrg.Item) string {
	wordNode, ok := wordNodeOf(seg)
	if !ok {
		return "F:" + NoneString + "_0"
	}
	flatWord, ok := wordNode.InRelation("Word")
	if !ok {
		return "F:" + NoneString + "_0"
	}
	nextWord, ok := flatWord.Next()
	if !ok {
		return "F:" + NoneString + "_0"
	}
	nextNode, ok := nextWord.InRelation("SylStructure")
	if !ok {
		return "F:" + NoneString + "_0"
	}
	return fmt.Sprintf("F:%s_%d", noneString(nextNode.Features().String("gpos")), nextNode.NumDaughters())
}

// phraseOf returns the Phrase item that owns seg's word, via
// SylStructure -> word -> R:Phrase -> parent.
func phraseOf(seg hrg.Item) (hrg.Item, bool) {
	wordNode, ok := wordNodeOf(seg)
	if !ok {
		return hrg.Item{}, false
	}
	wordInPhrase, ok := wordNode.InRelation("Phrase")
	if !ok {
		return hrg.Item{}, false
	}
	return wordInPhrase.Parent()
}

func (b *Builder) groupG(seg hrg.Item) string {
	phrase, ok := phraseOf(seg)
	if !ok {
		return "G:0_0"
	}
	prev, ok := phrase.Prev()
	if !ok {
		return "G:0_0"
	}
	return fmt.Sprintf("G:%d_%d", features.NumSylsInPhrase(prev), prev.NumDaughters())
}

func (b *Builder) groupH(seg hrg.Item) string {
	phrase, ok := phraseOf(seg)
	if !ok {
		return "H:0=0@0=0|" + NoneString
	}
	h1 := features.NumSylsInPhrase(phrase)
	h2 := phrase.NumDaughters()
	h3 := features.PhrasePosInUttForward(phrase)
	h4 := features.PhrasePosInUttBackward(phrase)
	h5 := noneString(phrase.Features().String("tobi"))
	return fmt.Sprintf("H:%d=%d@%d=%d|%s", h1, h2, h3, h4, h5)
}

func (b *Builder) groupI(seg hrg.Item) string {
	phrase, ok := phraseOf(seg)
	if !ok {
		return "I:0_0"
	}
	next, ok := phrase.Next()
	if !ok {
		return "I:0_0"
	}
	return fmt.Sprintf("I:%d_%d", features.NumSylsInPhrase(next), next.NumDaughters())
}

func (b *Builder) groupJ(seg hrg.Item) string {
	u := seg.Utt
	sylRel, _ := u.GetRelation("Syllable")
	wordRel, _ := u.GetRelation("Word")
	phraseRel, _ := u.GetRelation("Phrase")
	j1, j2, j3 := 0, 0, 0
	if sylRel != nil {
		j1 = sylRel.Len()
	}
	if wordRel != nil {
		j2 = wordRel.Len()
	}
	if phraseRel != nil {
		j3 = phraseRel.Len()
	}
	return fmt.Sprintf("J:%d+%d-%d", j1, j2, j3)
}

// groupTone returns the K/L/M/N tone groups (current, previous, previous-
// previous, next syllable tone), per hts_labels_tone2.py.
func (b *Builder) groupTone(seg hrg.Item) []string {
	sylNode, ok := sylStructNode(seg)
	if !ok {
		return []string{"K:0", "L:0", "M:0", "N:0"}
	}
	flatSyl, hasFlat := sylNode.InRelation("Syllable")

	k := sylNode.Features().Int("tone")

	var l, m, n int
	if hasFlat {
		if prev, ok := flatSyl.Prev(); ok {
			if prevNode, ok := prev.InRelation("SylStructure"); ok {
				l = prevNode.Features().Int("tone")
			}
			if prevPrev, ok := prev.Prev(); ok {
				if ppNode, ok := prevPrev.InRelation("SylStructure"); ok {
					m = ppNode.Features().Int("tone")
				}
			}
		}
		if next, ok := flatSyl.Next(); ok {
			if nextNode, ok := next.InRelation("SylStructure"); ok {
				n = nextNode.Features().Int("tone")
			}
		}
	}

	return []string{
		fmt.Sprintf("K:%d", k),
		fmt.Sprintf("L:%d", l),
		fmt.Sprintf("M:%d", m),
		fmt.Sprintf("N:%d", n),
	}
}
