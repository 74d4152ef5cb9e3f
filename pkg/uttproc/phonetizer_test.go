package uttproc

import (
	"reflect"
	"testing"

	"github.com/synthline/ttscore/pkg/g2p"
	"github.com/synthline/ttscore/pkg/hrg"
	"github.com/synthline/ttscore/pkg/phoneset"
	"github.com/synthline/ttscore/pkg/pronundict"
)

func buildWordOnly(u *hrg.Utterance, name, pos string) hrg.Item {
	wordRel := u.Relation("Word")
	w, _ := wordRel.AppendItem(nil)
	w.SetFeature("name", name)
	if pos != "" {
		w.SetFeature("pos", pos)
	}
	return w
}

func TestResolvePronunciationAddendumWinsFirst(t *testing.T) {
	res := &Resources{
		Phoneset: phoneset.NewEnglish(),
		Addendum: pronundict.Addendum{"dr": {"d", "aa", "k", "t", "er"}},
		Dict:     pronundict.New(),
	}
	res.Dict.AddWord("dr", pronundict.NewEntry([]string{"d", "r"}, "", ""))

	p := resolvePronunciation(res, "dr", "", nil)
	if p.source != "addendum" {
		t.Fatalf("source = %q, want addendum", p.source)
	}
	want := []string{"d", "aa", "k", "t", "er"}
	if !reflect.DeepEqual(p.phones, want) {
		t.Errorf("phones = %v, want %v", p.phones, want)
	}
}

func TestResolvePronunciationDictionaryPOSBeforeNoPOS(t *testing.T) {
	dict := pronundict.New()
	dict.AddWord("read", pronundict.NewEntry([]string{"r", "iy", "d"}, "1", "VB"))
	dict.AddWord("read", pronundict.NewEntry([]string{"r", "eh", "d"}, "1", "VBD"))
	res := &Resources{Phoneset: phoneset.NewEnglish(), Dict: dict}

	p := resolvePronunciation(res, "read", "VBD", nil)
	if p.source != "dict_pos" {
		t.Fatalf("source = %q, want dict_pos", p.source)
	}
	want := []string{"r", "eh", "d"}
	if !reflect.DeepEqual(p.phones, want) {
		t.Errorf("phones = %v, want %v", p.phones, want)
	}
}

func TestResolvePronunciationDictionaryPOSMissFallsBackToNoPOS(t *testing.T) {
	dict := pronundict.New()
	dict.AddWord("read", pronundict.NewEntry([]string{"r", "iy", "d"}, "1", "VB"))
	res := &Resources{Phoneset: phoneset.NewEnglish(), Dict: dict}

	p := resolvePronunciation(res, "read", "NN", nil)
	if p.source != "dict" {
		t.Fatalf("source = %q, want dict", p.source)
	}
}

func TestResolvePronunciationFallsBackToRawMap(t *testing.T) {
	res := &Resources{
		Phoneset: phoneset.NewEnglish(),
		Dict:     pronundict.New(),
		RawMap:   pronundict.RawMap{"xyz": {"z", "ih"}},
	}
	p := resolvePronunciation(res, "xyz", "", nil)
	if p.source != "rawmap" {
		t.Fatalf("source = %q, want rawmap", p.source)
	}
}

func TestResolvePronunciationFallsBackToG2P(t *testing.T) {
	rs := g2p.NewRuleSet()
	rs.AddRule(g2p.Rule{Grapheme: "a", Phoneme: "ah"})
	rs.Finalize()
	res := &Resources{Phoneset: phoneset.NewEnglish(), G2P: rs}

	p := resolvePronunciation(res, "a", "", nil)
	if p.source != "g2p" {
		t.Fatalf("source = %q, want g2p", p.source)
	}
}

func TestResolvePronunciationFallsBackToSilencePhone(t *testing.T) {
	ps := phoneset.NewEnglish()
	res := &Resources{Phoneset: ps}
	p := resolvePronunciation(res, "zzz", "", nil)
	if p.source != "silence" {
		t.Fatalf("source = %q, want silence", p.source)
	}
	if want := []string{ps.SilencePhone()}; !reflect.DeepEqual(p.phones, want) {
		t.Errorf("phones = %v, want %v", p.phones, want)
	}
}

func TestPhonetizerBuildsSylStructureTreeFromDictionaryEntry(t *testing.T) {
	dict := pronundict.New()
	dict.AddWord("cat", pronundict.NewSyllabifiedEntry([][]string{{"k", "ae", "t"}}, "1", ""))
	res := &Resources{Phoneset: phoneset.NewEnglish(), Dict: dict}

	u := hrg.New(nil)
	buildWordOnly(u, "cat", "")

	stage := NewPhonetizer(res, nil)
	if err := stage(u, ""); err != nil {
		t.Fatalf("phonetizer: %v", err)
	}

	segs := u.Relation("Segment").Items()
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	var got []string
	for _, s := range segs {
		got = append(got, s.Features().String("name"))
	}
	want := []string{"k", "ae", "t"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segment phones = %v, want %v", got, want)
	}

	syls := u.Relation("Syllable").Items()
	if len(syls) != 1 {
		t.Fatalf("got %d syllables, want 1", len(syls))
	}
	if got := syls[0].Features().String("stress"); got != "1" {
		t.Errorf("syllable stress = %q, want %q", got, "1")
	}

	// Segment -> SylStructure -> parent (Syllable) -> parent (Word) round trip.
	seg := segs[0]
	node, ok := seg.InRelation(SylStructureRelationName)
	if !ok {
		t.Fatal("segment not reachable via SylStructure")
	}
	sylParent, ok := node.Parent()
	if !ok {
		t.Fatal("SylStructure segment node has no syllable parent")
	}
	wordParent, ok := sylParent.Parent()
	if !ok {
		t.Fatal("SylStructure syllable node has no word parent")
	}
	if got := wordParent.Features().String("name"); got != "cat" {
		t.Errorf("round-trip word name = %q, want %q", got, "cat")
	}
}

func TestPhonetizerSyllabifiesWhenDictionaryHasNoSyllables(t *testing.T) {
	dict := pronundict.New()
	dict.AddWord("ago", pronundict.NewEntry([]string{"ə", "g", "ow"}, "", ""))
	res := &Resources{Phoneset: phoneset.NewEnglish(), Dict: dict}

	u := hrg.New(nil)
	buildWordOnly(u, "ago", "")

	stage := NewPhonetizer(res, nil)
	if err := stage(u, ""); err != nil {
		t.Fatalf("phonetizer: %v", err)
	}

	syls := u.Relation("Syllable").Items()
	if len(syls) == 0 {
		t.Fatal("expected the phoneset's syllabifier to produce at least one syllable")
	}
}

func TestPhonetizerNoWordRelationIsNoop(t *testing.T) {
	res := &Resources{Phoneset: phoneset.NewEnglish()}
	u := hrg.New(nil)
	stage := NewPhonetizer(res, nil)
	if err := stage(u, ""); err != nil {
		t.Fatalf("phonetizer: %v", err)
	}
	if u.HasRelation("Segment") {
		t.Error("phonetizer should not create a Segment relation with no Word relation present")
	}
}
