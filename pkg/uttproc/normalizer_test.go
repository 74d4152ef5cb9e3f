package uttproc

import (
	"github.com/synthline/ttscore/pkg/hrg"
	"testing"
)

func buildTokens(u *hrg.Utterance, names ...string) {
	tokenRel := u.Relation("Token")
	for _, n := range names {
		item, _ := tokenRel.AppendItem(nil)
		item.SetFeature("name", n)
	}
}

func TestNormalizerLowercasesAndTagsWordUnderToken(t *testing.T) {
	u := hrg.New(nil)
	buildTokens(u, "HELLO")

	res := &Resources{DefaultLanguage: "eng"}
	stage := NewNormalizer(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	words := u.Relation("Word").Items()
	if len(words) != 1 {
		t.Fatalf("got %d words, want 1", len(words))
	}
	if got := words[0].Features().String("name"); got != "hello" {
		t.Errorf("word name = %q, want %q", got, "hello")
	}

	tok := u.Relation("Token").Items()[0]
	tokWord, ok := words[0].InRelation("Token")
	if ok {
		tokWord, ok = tokWord.Parent()
	}
	if !ok || !tokWord.Equal(tok) {
		t.Error("the Word's content should be reachable via the Token relation, under its Token, per the Token/Word invariant")
	}
	daughter, ok := tok.FirstDaughter()
	if !ok || !daughter.Equal(words[0]) {
		t.Error("token should have the Word item as its daughter")
	}
}

func TestNormalizerSplitsOnInternalHyphens(t *testing.T) {
	u := hrg.New(nil)
	buildTokens(u, "well-known")

	res := &Resources{DefaultLanguage: "eng"}
	stage := NewNormalizer(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	words := u.Relation("Word").Items()
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if got := words[0].Features().String("name"); got != "well" {
		t.Errorf("words[0].name = %q, want %q", got, "well")
	}
	if got := words[1].Features().String("name"); got != "known" {
		t.Errorf("words[1].name = %q, want %q", got, "known")
	}

	tokens := u.Relation("Token").Items()
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens after hyphen split, want 2 (one inserted per extra part)", len(tokens))
	}
	w, ok := words[1].InRelation("Token")
	if ok {
		w, ok = w.Parent()
	}
	if !ok || !w.Equal(tokens[1]) {
		t.Error("the second Word should be reachable via the Token relation under the second (inserted) token")
	}
}

func TestNormalizerAppliesLigatures(t *testing.T) {
	u := hrg.New(nil)
	buildTokens(u, "ENCYCLOPÆDIA")

	res := &Resources{
		DefaultLanguage: "eng",
		Ligatures:       map[string]string{"æ": "ae"},
	}
	stage := NewNormalizer(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	words := u.Relation("Word").Items()
	if got := words[0].Features().String("name"); got != "encyclopaedia" {
		t.Errorf("word name = %q, want %q", got, "encyclopaedia")
	}
}

func TestNormalizerLanguageTaggingExplicitMarkerWins(t *testing.T) {
	u := hrg.New(nil)
	buildTokens(u, "|zu|sawubona")

	res := &Resources{
		DefaultLanguage: "eng",
		LanguageLexicons: map[string]map[string]bool{
			"zu": {},
		},
	}
	stage := NewNormalizer(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	word := u.Relation("Word").Items()[0]
	if got := word.Features().String("name"); got != "sawubona" {
		t.Errorf("word name = %q, want %q (marker stripped)", got, "sawubona")
	}
	if got := word.Features().String("lang"); got != "zu" {
		t.Errorf("word lang = %q, want %q", got, "zu")
	}
}

func TestNormalizerLanguageTaggingAllCapsHeuristic(t *testing.T) {
	u := hrg.New(nil)
	buildTokens(u, "NASA")

	res := &Resources{
		DefaultLanguage:  "zu",
		LanguageLexicons: map[string]map[string]bool{"zu": {}},
	}
	stage := NewNormalizer(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	word := u.Relation("Word").Items()[0]
	if got := word.Features().String("lang"); got != "eng" {
		t.Errorf("word lang = %q, want %q (ALL-CAPS heuristic)", got, "eng")
	}
}

func TestNormalizerLanguageTaggingLexiconMembership(t *testing.T) {
	u := hrg.New(nil)
	buildTokens(u, "sawubona")

	res := &Resources{
		DefaultLanguage: "eng",
		LanguageLexicons: map[string]map[string]bool{
			"zu": {"sawubona": true},
		},
	}
	stage := NewNormalizer(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	word := u.Relation("Word").Items()[0]
	if got := word.Features().String("lang"); got != "zu" {
		t.Errorf("word lang = %q, want %q (lexicon membership)", got, "zu")
	}
}

func TestNormalizerNoWordRelationWhenNoTokens(t *testing.T) {
	u := hrg.New(nil)
	res := &Resources{DefaultLanguage: "eng"}
	stage := NewNormalizer(res)
	if err := stage(u, ""); err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	if u.Relation("Word").Len() != 0 {
		t.Error("expected empty Word relation with no Token relation present")
	}
}
