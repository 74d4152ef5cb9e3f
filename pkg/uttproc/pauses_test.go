package uttproc

import (
	"testing"

	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/phoneset"
)

// buildPhraseWithWord builds one Phrase containing one Word whose
// SylStructure/Syllable/Segment tree holds a single segment, mirroring what
// the phonetizer leaves behind for the pauses stage to consume.
func buildPhraseWithWord(u *hrg.Utterance, wordName, phone string) {
	wordRel := u.Relation("Word")
	phraseRel := u.Relation(PhraseRelationName)
	sylStructRel := u.Relation(SylStructureRelationName)
	sylRel := u.Relation("Syllable")
	segRel := u.Relation("Segment")

	w, _ := wordRel.AppendItem(nil)
	w.SetFeature("name", wordName)

	phrase, _ := phraseRel.AppendItem(nil)
	phrase.AddDaughter(&w)

	wordNode, _ := sylStructRel.AppendItem(&w)
	syl, _ := sylRel.AppendItem(nil)
	sylNode, _ := wordNode.AddDaughter(&syl)
	seg, _ := segRel.AppendItem(nil)
	seg.SetFeature("name", phone)
	sylNode.AddDaughter(&seg)
}

func TestPausesPrependsHeadSilence(t *testing.T) {
	u := hrg.New(nil)
	buildPhraseWithWord(u, "hi", "ay")

	stage := NewPauses(phoneset.NewEnglish())
	if err := stage(u, ""); err != nil {
		t.Fatalf("pauses: %v", err)
	}

	segs := u.Relation("Segment").Items()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	first := segs[0]
	if !first.Features().Bool("pause") {
		t.Error("first segment should be a pause")
	}
	ps := phoneset.NewEnglish()
	if got := first.Features().String("name"); got != ps.SilencePhone() {
		t.Errorf("first segment name = %q, want silence phone %q", got, ps.SilencePhone())
	}
}

func TestPausesAppendsOnePerPhraseAfterLastSegment(t *testing.T) {
	u := hrg.New(nil)
	buildPhraseWithWord(u, "hi", "ay")

	stage := NewPauses(phoneset.NewEnglish())
	if err := stage(u, ""); err != nil {
		t.Fatalf("pauses: %v", err)
	}

	segs := u.Relation("Segment").Items()
	// head pause, "ay", phrase-final pause.
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3 (head pause + phone + phrase-final pause)", len(segs))
	}
	last := segs[len(segs)-1]
	if !last.Features().Bool("pause") {
		t.Error("last segment should be a phrase-final pause")
	}
	middle := segs[1]
	if middle.Features().Bool("pause") {
		t.Error("middle segment should not be a pause")
	}
	if got := middle.Features().String("name"); got != "ay" {
		t.Errorf("middle segment name = %q, want %q", got, "ay")
	}
}

func TestPausesNoSegmentOrPhraseRelationIsNoop(t *testing.T) {
	u := hrg.New(nil)
	stage := NewPauses(phoneset.NewEnglish())
	if err := stage(u, ""); err != nil {
		t.Fatalf("pauses: %v", err)
	}
	if u.HasRelation("Segment") {
		t.Error("pauses should not create a Segment relation when none existed")
	}
}
