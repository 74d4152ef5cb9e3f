// Package features implements the pure linguistic feature extractors:
// small functions from an [hrg.Item] to a position, count, or
// distance, used by [pkg/label] to build full-context phone labels. Every
// function here reaches its target through plain HRG navigation
// ([hrg.Item] methods) rather than the string traversal DSL — these
// functions are exactly what the DSL's M: steps would resolve to, so
// [Registry] additionally exposes them through [hrg.MethodRegistry] for
// any voice-level path that wants to invoke them that way.
//
// A failed navigation (a missing relation link, a nil parent) means the
// feature is not defined at that item: every function here returns the
// zero value in that case rather than propagating an error.
package features

import "github.com/synthline/ttscore/pkg/hrg"

// itemPosInParentForward returns the 1-based forward position of item
// among its parent's daughters, or 0 if item has no parent.
func itemPosInParentForward(item hrg.Item) int {
	parent, ok := item.Parent()
	if !ok {
		return 0
	}
	for i, d := range parent.Daughters() {
		if d.Equal(item) {
			return i + 1
		}
	}
	return 0
}

// itemPosInParentBackward returns the 1-based backward position (distance
// from the end) of item among its parent's daughters, or 0 if item has no
// parent.
func itemPosInParentBackward(item hrg.Item) int {
	parent, ok := item.Parent()
	if !ok {
		return 0
	}
	daughters := parent.Daughters()
	for i, d := range daughters {
		if d.Equal(item) {
			return len(daughters) - i
		}
	}
	return 0
}

// SegPosInSylForward returns seg's forward position among its syllable's
// daughter segments in SylStructure, given seg is itself a Segment
// relation item.
func SegPosInSylForward(seg hrg.Item) int {
	node, ok := seg.InRelation("SylStructure")
	if !ok {
		return 0
	}
	return itemPosInParentForward(node)
}

// SegPosInSylBackward is the backward counterpart of [SegPosInSylForward].
func SegPosInSylBackward(seg hrg.Item) int {
	node, ok := seg.InRelation("SylStructure")
	if !ok {
		return 0
	}
	return itemPosInParentBackward(node)
}

// SylPosInWordForward returns syl's forward position among its word's
// daughter syllables in SylStructure, given syl is a Syllable relation
// item.
func SylPosInWordForward(syl hrg.Item) int {
	node, ok := syl.InRelation("SylStructure")
	if !ok {
		return 0
	}
	return itemPosInParentForward(node)
}

// SylPosInWordBackward is the backward counterpart of
// [SylPosInWordForward].
func SylPosInWordBackward(syl hrg.Item) int {
	node, ok := syl.InRelation("SylStructure")
	if !ok {
		return 0
	}
	return itemPosInParentBackward(node)
}

// sylStructSylNode returns the SylStructure tree node for a Syllable
// relation item.
func sylStructSylNode(syl hrg.Item) (hrg.Item, bool) {
	return syl.InRelation("SylStructure")
}

// phraseOfSyl walks syl (a Syllable relation item) up to the enclosing
// Phrase item: SylStructure node -> parent (word node) -> R:Phrase (word
// in Phrase relation) -> parent (phrase item).
func phraseOfSyl(syl hrg.Item) (hrg.Item, bool) {
	sylNode, ok := sylStructSylNode(syl)
	if !ok {
		return hrg.Item{}, false
	}
	wordNode, ok := sylNode.Parent()
	if !ok {
		return hrg.Item{}, false
	}
	wordInPhrase, ok := wordNode.InRelation("Phrase")
	if !ok {
		return hrg.Item{}, false
	}
	return wordInPhrase.Parent()
}

// sylListInPhrase returns, in order, every SylStructure syllable node
// under every Word daughter of phrase.
func sylListInPhrase(phrase hrg.Item) []hrg.Item {
	var out []hrg.Item
	for _, w := range phrase.Daughters() {
		wordNode, ok := w.InRelation("SylStructure")
		if !ok {
			continue
		}
		out = append(out, wordNode.Daughters()...)
	}
	return out
}

// NumSylsInPhrase returns the total number of syllables under phrase.
func NumSylsInPhrase(phrase hrg.Item) int {
	return len(sylListInPhrase(phrase))
}

func indexOf(list []hrg.Item, target hrg.Item) (int, bool) {
	for i, it := range list {
		if it.Equal(target) {
			return i, true
		}
	}
	return 0, false
}

// SylPosInPhraseForward returns syl's 1-based forward position among
// every syllable in its enclosing phrase.
func SylPosInPhraseForward(syl hrg.Item) int {
	sylNode, ok := sylStructSylNode(syl)
	if !ok {
		return 0
	}
	phrase, ok := phraseOfSyl(syl)
	if !ok {
		return 0
	}
	idx, ok := indexOf(sylListInPhrase(phrase), sylNode)
	if !ok {
		return 0
	}
	return idx + 1
}

// SylPosInPhraseBackward is the backward counterpart of
// [SylPosInPhraseForward].
func SylPosInPhraseBackward(syl hrg.Item) int {
	sylNode, ok := sylStructSylNode(syl)
	if !ok {
		return 0
	}
	phrase, ok := phraseOfSyl(syl)
	if !ok {
		return 0
	}
	list := sylListInPhrase(phrase)
	idx, ok := indexOf(list, sylNode)
	if !ok {
		return 0
	}
	return len(list) - idx
}

// SylsBeforeSylInPhrase returns the number of syllables before syl in its
// enclosing phrase whose feat feature equals featvalue. Kept distinct
// from the word-counting [WordsBeforeSylInPhrase]: the two counts look
// alike but disagree on any multi-syllable word.
func SylsBeforeSylInPhrase(syl hrg.Item, feat, featvalue string) int {
	sylNode, ok := sylStructSylNode(syl)
	if !ok {
		return 0
	}
	phrase, ok := phraseOfSyl(syl)
	if !ok {
		return 0
	}
	list := sylListInPhrase(phrase)
	idx, ok := indexOf(list, sylNode)
	if !ok {
		return 0
	}
	count := 0
	for _, s := range list[:idx] {
		if s.Features().String(feat) == featvalue {
			count++
		}
	}
	return count
}

// SylsAfterSylInPhrase is the "after" counterpart of
// [SylsBeforeSylInPhrase].
func SylsAfterSylInPhrase(syl hrg.Item, feat, featvalue string) int {
	sylNode, ok := sylStructSylNode(syl)
	if !ok {
		return 0
	}
	phrase, ok := phraseOfSyl(syl)
	if !ok {
		return 0
	}
	list := sylListInPhrase(phrase)
	idx, ok := indexOf(list, sylNode)
	if !ok {
		return 0
	}
	count := 0
	for _, s := range list[idx+1:] {
		if s.Features().String(feat) == featvalue {
			count++
		}
	}
	return count
}

// SylDistPrev returns the number of syllables (in the flat Syllable
// relation, 1 = immediately previous) from syl back to the nearest
// previous syllable whose feat feature equals featvalue, or 0 if none is
// found. syl is normalized to the flat Syllable relation item first, so
// it may be passed either that item or the corresponding SylStructure
// tree node.
func SylDistPrev(syl hrg.Item, feat, featvalue string) int {
	flat, ok := syl.InRelation("Syllable")
	if !ok {
		return 0
	}
	count := 1
	cur, ok := flat.Prev()
	for ok {
		if cur.Features().Has(feat) && cur.Features().String(feat) == featvalue {
			return count
		}
		count++
		cur, ok = cur.Prev()
	}
	return 0
}

// SylDistNext is the forward counterpart of [SylDistPrev].
func SylDistNext(syl hrg.Item, feat, featvalue string) int {
	flat, ok := syl.InRelation("Syllable")
	if !ok {
		return 0
	}
	count := 1
	cur, ok := flat.Next()
	for ok {
		if cur.Features().Has(feat) && cur.Features().String(feat) == featvalue {
			return count
		}
		count++
		cur, ok = cur.Next()
	}
	return 0
}

// WordPosInPhraseForward returns word's 1-based forward position among
// its phrase's daughter Words, given word is a Word relation item.
func WordPosInPhraseForward(word hrg.Item) int {
	node, ok := word.InRelation("Phrase")
	if !ok {
		return 0
	}
	return itemPosInParentForward(node)
}

// WordPosInPhraseBackward is the backward counterpart of
// [WordPosInPhraseForward].
func WordPosInPhraseBackward(word hrg.Item) int {
	node, ok := word.InRelation("Phrase")
	if !ok {
		return 0
	}
	return itemPosInParentBackward(node)
}

// WordsBeforeSylInPhrase returns the number of words before word in its
// enclosing phrase whose feat feature equals featvalue. word must be a
// Word relation item; see [SylsBeforeSylInPhrase] for the naming
// rationale.
func WordsBeforeSylInPhrase(word hrg.Item, feat, featvalue string) int {
	node, ok := word.InRelation("Phrase")
	if !ok {
		return 0
	}
	phrase, ok := node.Parent()
	if !ok {
		return 0
	}
	wordlist := phrase.Daughters()
	idx, ok := indexOf(wordlist, node)
	if !ok {
		return 0
	}
	count := 0
	for _, w := range wordlist[:idx] {
		if w.Features().String(feat) == featvalue {
			count++
		}
	}
	return count
}

// WordsAfterSylInPhrase is the "after" counterpart of
// [WordsBeforeSylInPhrase].
func WordsAfterSylInPhrase(word hrg.Item, feat, featvalue string) int {
	node, ok := word.InRelation("Phrase")
	if !ok {
		return 0
	}
	phrase, ok := node.Parent()
	if !ok {
		return 0
	}
	wordlist := phrase.Daughters()
	idx, ok := indexOf(wordlist, node)
	if !ok {
		return 0
	}
	count := 0
	for _, w := range wordlist[idx+1:] {
		if w.Features().String(feat) == featvalue {
			count++
		}
	}
	return count
}

// WordDistPrev returns the distance (1 = immediately previous) from word
// back to the nearest previous word whose feat feature equals featvalue,
// in the flat Word relation, or 0 if none is found. word is normalized to
// the flat Word relation item first.
func WordDistPrev(word hrg.Item, feat, featvalue string) int {
	flat, ok := word.InRelation("Word")
	if !ok {
		return 0
	}
	count := 1
	cur, ok := flat.Prev()
	for ok {
		if cur.Features().Has(feat) && cur.Features().String(feat) == featvalue {
			return count
		}
		count++
		cur, ok = cur.Prev()
	}
	return 0
}

// WordDistNext is the forward counterpart of [WordDistPrev].
func WordDistNext(word hrg.Item, feat, featvalue string) int {
	flat, ok := word.InRelation("Word")
	if !ok {
		return 0
	}
	count := 1
	cur, ok := flat.Next()
	for ok {
		if cur.Features().Has(feat) && cur.Features().String(feat) == featvalue {
			return count
		}
		count++
		cur, ok = cur.Next()
	}
	return 0
}

// PhrasePosInUttForward returns phrase's 1-based forward position among
// every Phrase item in the utterance.
func PhrasePosInUttForward(phrase hrg.Item) int {
	rel, ok := phrase.Utt.GetRelation("Phrase")
	if !ok {
		return 0
	}
	for i, p := range rel.Items() {
		if p.Equal(phrase) {
			return i + 1
		}
	}
	return 0
}

// PhrasePosInUttBackward is the backward counterpart of
// [PhrasePosInUttForward].
func PhrasePosInUttBackward(phrase hrg.Item) int {
	rel, ok := phrase.Utt.GetRelation("Phrase")
	if !ok {
		return 0
	}
	items := rel.Items()
	for i, p := range items {
		if p.Equal(phrase) {
			return len(items) - i
		}
	}
	return 0
}
