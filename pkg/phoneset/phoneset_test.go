package phoneset

import (
	"reflect"
	"testing"
)

func TestSonorityLevelTable(t *testing.T) {
	e := NewEnglish()
	cases := []struct {
		phone string
		want  int
	}{
		{"a", 9},  // low vowel
		{"ɛ", 8},  // mid vowel
		{"ɪ", 7},  // high vowel
		{"l", 6},  // liquid
		{"m", 5},  // nasal
		{"v", 4},  // voiced fricative
		{"f", 3},  // voiceless fricative
		{"b", 2},  // voiced plosive
		{"p", 1},  // voiceless plosive
		{"pau", 0}, // none of the above
	}
	for _, c := range cases {
		if got := e.SonorityLevel(c.phone); got != c.want {
			t.Errorf("SonorityLevel(%q) = %d, want %d", c.phone, got, c.want)
		}
	}
}

func TestEnglishSyllabifyVCV(t *testing.T) {
	e := NewEnglish()
	// "banana"-like CVCVCV skeleton isolated to a single VCV window: /əbə/
	got := e.Syllabify([]string{"ə", "b", "ə"})
	want := [][]string{{"ə"}, {"b", "ə"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Syllabify VCV = %v, want %v", got, want)
	}
}

func TestEnglishSyllabifyWellformedOnsetVCCV(t *testing.T) {
	e := NewEnglish()
	// /b/ /l/ is a wellformed plosive-liquid onset with rising sonority,
	// so "VCCV" -> V.CCV: the cluster attaches to the following syllable.
	got := e.Syllabify([]string{"ɛ", "b", "l", "ɛ"})
	want := [][]string{{"ɛ"}, {"b", "l", "ɛ"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Syllabify VCCV wellformed = %v, want %v", got, want)
	}
}

func TestEnglishSyllabifyFallingSonorityVCCV(t *testing.T) {
	e := NewEnglish()
	// /l/ /b/ has falling sonority and is not a wellformed onset cluster,
	// so it splits heterosyllabically: VC.CV.
	got := e.Syllabify([]string{"ɛ", "l", "b", "ɛ"})
	want := [][]string{{"ɛ", "l"}, {"b", "ɛ"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Syllabify VCCV falling sonority = %v, want %v", got, want)
	}
}

func TestEnglishGuessSylStressSingleSyllable(t *testing.T) {
	e := NewEnglish()
	if got := e.GuessSylStress([][]string{{"k", "a", "t"}}); got != "1" {
		t.Errorf("GuessSylStress(no schwa) = %q, want %q", got, "1")
	}
	if got := e.GuessSylStress([][]string{{"ə"}}); got != "0" {
		t.Errorf("GuessSylStress(schwa) = %q, want %q", got, "0")
	}
}

func TestEnglishGuessSylStressMultiSyllable(t *testing.T) {
	e := NewEnglish()
	got := e.GuessSylStress([][]string{{"k", "a"}, {"t", "ə"}})
	if got != "00" {
		t.Errorf("GuessSylStress multi = %q, want %q", got, "00")
	}
}

func TestZuluSyllabifyLoneVowelClosesSyllable(t *testing.T) {
	z := NewZulu()
	// /m/ is not marked class_syllabic in this inventory; use a vowel
	// followed by a lone consonant to exercise the V.Any rule instead.
	got := z.Syllabify([]string{"a", "m", "a"})
	want := [][]string{{"a"}, {"m", "a"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Syllabify = %v, want %v", got, want)
	}
}

func TestZuluSyllabifyVCCTriple(t *testing.T) {
	z := NewZulu()
	// V C C where both following segments are consonants closes as V.C,
	// starting a new syllable on the trailing consonant: "a n d a" ->
	// [a n][d a] per the VC.C rule (3-phone lookahead).
	got := z.Syllabify([]string{"a", "n", "d", "a"})
	want := [][]string{{"a", "n"}, {"d", "a"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Syllabify = %v, want %v", got, want)
	}
}

func TestBackendSymbolFallsThroughWhenUnmapped(t *testing.T) {
	e := NewEnglish()
	if got := e.BackendSymbol("not-a-real-phone"); got != "not-a-real-phone" {
		t.Errorf("BackendSymbol passthrough = %q", got)
	}
	if got := e.BackendSymbol("tʃ"); got != "ch" {
		t.Errorf("BackendSymbol(tʃ) = %q, want %q", got, "ch")
	}
}

func TestIsObstruentExcludesSonorantsAndSyllabics(t *testing.T) {
	e := NewEnglish()
	if !e.IsObstruent("t") {
		t.Errorf("expected t to be an obstruent")
	}
	if e.IsObstruent("l") {
		t.Errorf("liquid l should not be an obstruent (class_sonorant)")
	}
	if e.IsObstruent("i") {
		t.Errorf("vowel i should not be an obstruent (class_syllabic)")
	}
}

var _ Set = (*English)(nil)
var _ Set = (*Zulu)(nil)
