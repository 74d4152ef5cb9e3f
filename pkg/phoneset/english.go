package phoneset

import "strings"

// English is a Germanic-family MRPA-based phoneset, grounded on
// original_source/ttslab/voices/english_default.py's LwaziEnglishPhoneset,
// including the syllabification scheme from T.A. Hall, "English
// syllabification as the interaction of markedness constraints", Studia
// Linguistica 60 (2006).
type English struct {
	base
	syllableClusters    []string
	wellformedClusters  [][]string
}

// NewEnglish returns the Lwazi (South African) English phoneset.
func NewEnglish() *English {
	e := &English{base: base{
		name:         "Lwazi English Phoneset",
		silencePhone: "pau",
		closurePhone: "pau_cl",
	}}
	e.syllableClusters = []string{"VCV", "VCCV", "VCCCV", "VCCCCV", "VCGV", "VCCGV", "VCCCGV", "VV"}

	plosiveClusters := [][]string{
		{"p", "l"}, {"b", "l"}, {"k", "l"}, {"g", "l"}, {"p", "ɹ"},
		{"b", "ɹ"}, {"t", "ɹ"}, {"d", "ɹ"}, {"k", "ɹ"}, {"g", "ɹ"},
		{"t", "w"}, {"d", "w"}, {"g", "w"}, {"k", "w"}, {"p", "j"},
		{"b", "j"}, {"t", "j"}, {"d", "j"}, {"k", "j"}, {"g", "j"},
	}
	fricativeClusters := [][]string{
		{"f", "l"}, {"f", "ɹ"}, {"θ", "ɹ"}, {"ʃ", "ɹ"},
		{"θ", "w"}, {"h", "w"}, {"f", "j"}, {"v", "j"},
		{"θ", "j"}, {"z", "j"}, {"h", "j"},
	}
	otherClusters := [][]string{{"m", "j"}, {"n", "j"}, {"l", "j"}}
	sClusters := [][]string{
		{"s", "p"}, {"s", "t"}, {"s", "k"}, {"s", "m"}, {"s", "n"},
		{"s", "f"}, {"s", "w"}, {"s", "l"}, {"s", "j"}, {"s", "p", "l"},
		{"s", "p", "ɹ"}, {"s", "p", "j"}, {"s", "m", "j"}, {"s", "t", "ɹ"},
		{"s", "t", "j"}, {"s", "k", "l"}, {"s", "k", "ɹ"}, {"s", "k", "w"},
		{"s", "k", "j"},
	}
	e.wellformedClusters = append(append(append(append([][]string{}, plosiveClusters...), fricativeClusters...), otherClusters...), sClusters...)

	e.phones = map[string]phone{
		"pau":    {properties: props("pause")},
		"pau_cl": {properties: props("closure")},
		"ʔ":      {properties: props("glottal-stop"), backend: "pau_gs"},
		"ə":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_mid", "position_central"), backend: "_"},
		"ɜ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_long", "height_mid", "position_central"), backend: "__"},
		"a":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_low", "position_front"), backend: "a"},
		"ɑ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_long", "height_low", "position_back"), backend: "aa"},
		"aɪ":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "ai"},
		"aʊ":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "au"},
		"b":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_bilabial", "voiced"), backend: "b"},
		"tʃ":     {properties: props("class_consonantal", "consonant", "manner_affricate", "manner_strident", "place_alveolar", "place_post-alveolar"), backend: "ch"},
		"d":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_alveolar", "voiced"), backend: "d"},
		"ð":      {properties: props("class_consonantal", "consonant", "manner_fricative", "place_dental", "voiced"), backend: "dh"},
		"ɛ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_mid", "position_front"), backend: "e"},
		"ɛə":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "e_"},
		"eɪ":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "ei"},
		"f":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_labiodental"), backend: "f"},
		"g":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_velar", "voiced"), backend: "g"},
		"h":      {properties: props("consonant", "manner_fricative", "place_glottal"), backend: "h"},
		"ɪ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_high", "position_front"), backend: "i"},
		"ɪə":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "i_"},
		"i":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_high", "position_front"), backend: "ii"},
		"dʒ":     {properties: props("class_consonantal", "consonant", "manner_affricate", "manner_strident", "place_alveolar", "place_post-alveolar", "voiced"), backend: "jh"},
		"k":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_velar"), backend: "k"},
		"l":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_approximant", "manner_liquid", "manner_lateral", "place_alveolar", "voiced"), backend: "l"},
		"m":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_nasal", "place_bilabial", "voiced"), backend: "m"},
		"n":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_nasal", "place_alveolar", "voiced"), backend: "n"},
		"ŋ":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_nasal", "place_velar", "voiced"), backend: "ng"},
		"ɒ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_low", "position_back", "articulation_rounded"), backend: "o"},
		"ɔɪ":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "oi"},
		"ɔ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_mid", "position_back", "articulation_rounded"), backend: "oo"},
		"əʊ":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "ou"},
		"p":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_bilabial"), backend: "p"},
		"ɹ":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_approximant", "manner_liquid", "place_alveolar", "voiced"), backend: "r"},
		"s":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_alveolar"), backend: "s"},
		"ʃ":      {properties: props("class_consonantal", "consonant", "manner_fricative", "place_post-alveolar"), backend: "sh"},
		"t":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_alveolar"), backend: "t"},
		"θ":      {properties: props("class_consonantal", "consonant", "manner_fricative", "place_dental"), backend: "th"},
		"ʊ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_high", "position_back", "articulation_rounded"), backend: "u"},
		"ʊə":     {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_diphthong"), backend: "u_"},
		"ʌ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_mid", "position_back"), backend: "uh"},
		"u":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_long", "height_high", "position_back", "articulation_rounded"), backend: "uu"},
		"v":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_labiodental", "voiced"), backend: "v"},
		"w":      {properties: props("class_sonorant", "consonant", "manner_approximant", "manner_glide", "place_labial", "place_velar", "voiced"), backend: "w"},
		"j":      {properties: props("class_sonorant", "consonant", "manner_approximant", "manner_glide", "place_palatal", "voiced"), backend: "y"},
		"z":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_alveolar", "voiced"), backend: "z"},
		"ʒ":      {properties: props("class_consonantal", "consonant", "manner_fricative", "place_post-alveolar", "voiced"), backend: "zh"},
	}
	return e
}

func clusterEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *English) isWellformedCluster(c []string) bool {
	for _, wf := range e.wellformedClusters {
		if clusterEqual(wf, c) {
			return true
		}
	}
	return false
}

// processCluster implements the Hall-paper split decisions for one matched
// cluster window. phonecluster is the slice of phones spanning the match.
func (e *English) processCluster(cluster string, phonecluster []string) string {
	switch cluster {
	case "VCV":
		return "V.CV"

	case "VCCV":
		cc := phonecluster[1:3]
		if (e.isWellformedCluster(cc) && e.SonorityLevel(cc[1]) > e.SonorityLevel(cc[0])) ||
			(cc[0] == "s" && e.IsPlosive(cc[1]) && !e.IsVoiced(cc[1])) {
			return "V.CCV"
		}
		if e.SonorityLevel(cc[1]) < e.SonorityLevel(cc[0]) ||
			e.SonorityLevel(cc[1]) == e.SonorityLevel(cc[0]) ||
			(!e.isWellformedCluster(cc) && e.SonorityLevel(cc[1]) > e.SonorityLevel(cc[0])) {
			return "VC.CV"
		}
		return "VC.CV"

	case "VCCCV":
		ccc := phonecluster[1:4]
		c2c3 := ccc[1:]
		allObstruent := true
		for _, c := range ccc {
			if !e.IsObstruent(c) {
				allObstruent = false
				break
			}
		}
		if allObstruent {
			return "VC.CCV"
		}
		if e.isWellformedCluster(c2c3) {
			return "VC.CCV"
		}
		return "VCC.CV"

	case "VCCCCV":
		return "VC.CCCV"

	case "VCGV":
		cg := phonecluster[1:3]
		if !e.IsPlosive(cg[0]) {
			return "VC.GV"
		}
		if !e.isWellformedCluster(cg) {
			return "VC.GV"
		}
		return "V.CGV"

	case "VCCGV":
		ccg := phonecluster[1:4]
		if ccg[0] == "s" {
			return "V.CCGV"
		}
		return "VC.CGV"

	case "VCCCGV":
		return "VC.CCGV"

	case "VV":
		return "V.V"
	}
	return ""
}

// Syllabify implements the Germanic cluster-rule syllabifier: classify each
// phone as V(owel)/G(lide)/C(onsonant), then apply the syllable_clusters
// patterns in fixed order, using sonority and the well-formed-onset tables
// to resolve ambiguous splits.
func (e *English) Syllabify(phones []string) [][]string {
	classstr := make([]byte, 0, len(phones))
	for _, p := range phones {
		switch {
		case e.IsVowel(p):
			classstr = append(classstr, 'V')
		case e.IsGlide(p):
			classstr = append(classstr, 'G')
		default:
			classstr = append(classstr, 'C')
		}
	}
	cls := string(classstr)

	if len(phones) >= 2 {
		last, prev := phones[len(phones)-1], phones[len(phones)-2]
		if e.IsSyllabicConsonant(last) && (e.IsObstruent(prev) || e.IsNasal(prev)) {
			cls = cls[:len(cls)-1] + "V"
		}
	}

	rlist := append([]string(nil), phones...)

	for _, cluster := range e.syllableClusters {
		for {
			idx := strings.Index(cls, cluster)
			if idx < 0 {
				break
			}
			end := idx + len(cluster)
			clustersylstr := e.processCluster(cluster, rlist[idx:end])
			if clustersylstr == "" {
				break
			}
			cls = cls[:idx] + clustersylstr + cls[end:]
			dotPos := strings.Index(clustersylstr, ".")
			insertAt := idx + dotPos
			rlist = append(rlist[:insertAt:insertAt], append([]string{""}, rlist[insertAt:]...)...)
		}
	}

	sylls := [][]string{{}}
	index := 0
	for _, ch := range cls {
		if ch != '.' {
			sylls[len(sylls)-1] = append(sylls[len(sylls)-1], phones[index])
			index++
		} else {
			sylls = append(sylls, []string{})
		}
	}
	return sylls
}

// GuessSylStress returns "1" for a single syllable without a schwa, "0"
// otherwise for single syllables, and a string of zeros for multi-syllable
// words (richer stress prediction is left to the dictionary/G2P layer).
func (e *English) GuessSylStress(syllables [][]string) string {
	if len(syllables) == 1 {
		for _, p := range syllables[0] {
			if p == "ə" {
				return "0"
			}
		}
		return "1"
	}
	out := make([]byte, len(syllables))
	for i := range out {
		out[i] = '0'
	}
	return string(out)
}
