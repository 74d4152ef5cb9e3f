package uttproc

import (
	"testing"

	"github.com/synthline/ttscore/pkg/hrg"
)

// buildWordsUnderTokens creates one Token per entry with the given postpunc
// (empty for none) and one new Word item added as that token's daughter,
// mirroring what the normalizer produces.
func buildWordsUnderTokens(u *hrg.Utterance, words []string, postpuncs []string) {
	tokenRel := u.Relation("Token")
	wordRel := u.Relation("Word")
	for i, w := range words {
		tok, _ := tokenRel.AppendItem(nil)
		tok.SetFeature("name", w)
		if postpuncs[i] != "" {
			tok.SetFeature("postpunc", postpuncs[i])
		}
		word, _ := wordRel.AppendItem(nil)
		word.SetFeature("name", w)
		tok.AddDaughter(&word)
	}
}

func TestPhrasifierOpensOneInitialPhrase(t *testing.T) {
	u := hrg.New(nil)
	buildWordsUnderTokens(u, []string{"mathematics", "is", "easy"}, []string{"", "", ""})

	stage := NewPhrasifier(&Resources{})
	if err := stage(u, ""); err != nil {
		t.Fatalf("phrasifier: %v", err)
	}

	phrases := u.Relation(PhraseRelationName).Items()
	if len(phrases) != 1 {
		t.Fatalf("got %d phrases, want 1", len(phrases))
	}
	if got := phrases[0].Features().String("name"); got != BBPhraseName {
		t.Errorf("phrase name = %q, want %q", got, BBPhraseName)
	}
	if got := phrases[0].NumDaughters(); got != 3 {
		t.Errorf("phrase daughters = %d, want 3", got)
	}
}

func TestPhrasifierBreaksOnPostpuncPunctuation(t *testing.T) {
	u := hrg.New(nil)
	buildWordsUnderTokens(u, []string{"hello", "world"}, []string{",", "."})

	stage := NewPhrasifier(&Resources{})
	if err := stage(u, ""); err != nil {
		t.Fatalf("phrasifier: %v", err)
	}

	phrases := u.Relation(PhraseRelationName).Items()
	if len(phrases) != 2 {
		t.Fatalf("got %d phrases, want 2 (comma postpunc should break)", len(phrases))
	}
	if got := phrases[0].NumDaughters(); got != 1 {
		t.Errorf("phrases[0] daughters = %d, want 1", got)
	}
	if got := phrases[1].NumDaughters(); got != 1 {
		t.Errorf("phrases[1] daughters = %d, want 1", got)
	}
}

func TestPhrasifierOpensBeforeConjunction(t *testing.T) {
	u := hrg.New(nil)
	buildWordsUnderTokens(u, []string{"hoe", "se", "mens"}, []string{"", "", ""})

	res := &Resources{
		PhraseConjunctions: map[string]bool{"mens": true},
	}
	stage := NewPhrasifier(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("phrasifier: %v", err)
	}

	phrases := u.Relation(PhraseRelationName).Items()
	if len(phrases) != 2 {
		t.Fatalf("got %d phrases, want 2 (conjunction should open a phrase before it)", len(phrases))
	}
	if got := phrases[0].NumDaughters(); got != 2 {
		t.Errorf("phrases[0] daughters = %d, want 2", got)
	}
	if got := phrases[1].NumDaughters(); got != 1 {
		t.Errorf("phrases[1] daughters = %d, want 1", got)
	}
}

func TestPhrasifierNoWordRelationIsNoop(t *testing.T) {
	u := hrg.New(nil)
	stage := NewPhrasifier(&Resources{})
	if err := stage(u, ""); err != nil {
		t.Fatalf("phrasifier: %v", err)
	}
	if u.HasRelation(PhraseRelationName) {
		t.Error("phrasifier should not create a Phrase relation with no Word relation present")
	}
}
