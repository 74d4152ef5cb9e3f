package label

import (
	"strings"
	"testing"

	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/phoneset"
)

// buildUtterance builds a minimal utterance: one Phrase, one Word "cat"
// with one syllable [k,a,t], wired through Word/Phrase/SylStructure/
// Syllable/Segment per the canonical relations table.
func buildUtterance(t *testing.T) *hrg.Utterance {
	t.Helper()
	u := hrg.New(nil)

	phraseRel := u.Relation("Phrase")
	wordRel := u.Relation("Word")
	sylStructRel := u.Relation("SylStructure")
	sylRel := u.Relation("Syllable")
	segRel := u.Relation("Segment")

	phrase, err := phraseRel.AppendItem(nil)
	if err != nil {
		t.Fatalf("phrase: %v", err)
	}
	phrase.SetFeature("name", "BB")

	word, err := wordRel.AppendItem(nil)
	if err != nil {
		t.Fatalf("word: %v", err)
	}
	word.SetFeature("name", "cat")
	word.SetFeature("gpos", "content")
	if _, err := phrase.AddDaughter(&word); err != nil {
		t.Fatalf("add word: %v", err)
	}

	wordNode, err := sylStructRel.AppendItem(&word)
	if err != nil {
		t.Fatalf("wordnode: %v", err)
	}

	syl, err := sylRel.AppendItem(nil)
	if err != nil {
		t.Fatalf("syl: %v", err)
	}
	syl.SetFeature("stress", 1)
	sylNode, err := wordNode.AddDaughter(&syl)
	if err != nil {
		t.Fatalf("sylnode: %v", err)
	}

	for _, ph := range []string{"k", "a", "t"} {
		seg, err := segRel.AppendItem(nil)
		if err != nil {
			t.Fatalf("seg: %v", err)
		}
		seg.SetFeature("name", ph)
		if _, err := sylNode.AddDaughter(&seg); err != nil {
			t.Fatalf("add seg: %v", err)
		}
	}

	return u
}

func TestBuildLabelsShape(t *testing.T) {
	u := buildUtterance(t)
	b := &Builder{Phoneset: phoneset.NewEnglish()}

	lines := b.BuildLabels(u)
	if len(lines) != 3 {
		t.Fatalf("BuildLabels returned %d lines, want 3", len(lines))
	}

	for _, line := range lines {
		if strings.Count(line, "/") != 10 {
			t.Errorf("label line %q does not have 11 slash-joined groups", line)
		}
	}

	if !strings.Contains(lines[0], NoneString+"^"+NoneString+"-") {
		t.Errorf("first segment's left context should be all-none, got %q", lines[0])
	}
}

func TestGroupBStressAndVowel(t *testing.T) {
	u := buildUtterance(t)
	b := &Builder{Phoneset: phoneset.NewEnglish()}
	segRel, _ := u.GetRelation("Segment")
	vowelSeg := segRel.Items()[1] // "a"

	group := b.groupB(vowelSeg)
	if !strings.HasPrefix(group, "B:1-0-3@") {
		t.Errorf("groupB = %q, want prefix B:1-0-3@ (stress=1, 3 daughters)", group)
	}
}

func TestGroupJCounts(t *testing.T) {
	u := buildUtterance(t)
	b := &Builder{Phoneset: phoneset.NewEnglish()}
	segRel, _ := u.GetRelation("Segment")
	seg := segRel.Items()[0]

	if got := b.groupJ(seg); got != "J:1+1-1" {
		t.Errorf("groupJ = %q, want J:1+1-1", got)
	}
}

func TestFloatHTKIntRoundTrip(t *testing.T) {
	got := HTKIntToFloat(FloatToHTKInt(1.25))
	if got < 1.2499 || got > 1.2501 {
		t.Errorf("round trip = %v, want ~1.25", got)
	}
}
