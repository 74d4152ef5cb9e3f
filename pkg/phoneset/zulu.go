package phoneset

// Zulu is a Nguni-family phoneset, grounded on
// original_source/ttslab/voices/zulu_default.py's LwaziZuluPhoneset: a
// click-rich Bantu consonant inventory plus the left-to-right sweep
// syllabifier Etienne Barnard described for Zulu.
type Zulu struct{ base }

// NewZulu returns the Lwazi Zulu phoneset.
func NewZulu() *Zulu {
	z := &Zulu{base: base{
		name:         "Lwazi Zulu Phoneset",
		silencePhone: "pau",
		closurePhone: "pau_cl",
	}}
	z.phones = map[string]phone{
		"pau":    {properties: props("pause")},
		"pau_cl": {properties: props("closure")},
		"ʔ":      {properties: props("glottal-stop"), backend: "pau_gs"},
		"pʼ":     {properties: props("class_consonantal", "consonant", "manner_plosive", "place_bilabial", "ejective"), backend: "p_e"},
		"pʰ":     {properties: props("class_consonantal", "consonant", "manner_plosive", "place_bilabial", "aspirated"), backend: "p_h"},
		"ɓ":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_bilabial", "voiced", "implosive"), backend: "b_E"},
		"tʼ":     {properties: props("class_consonantal", "consonant", "manner_plosive", "place_alveolar", "ejective"), backend: "t_e"},
		"tʰ":     {properties: props("class_consonantal", "consonant", "manner_plosive", "place_alveolar", "aspirated"), backend: "t_h"},
		"lʒ":     {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_lateral", "place_alveolar", "voiced"), backend: "_lZ_"},
		"tsʼ":    {properties: props("class_consonantal", "consonant", "manner_affricate", "manner_strident", "place_alveolar", "ejective"), backend: "ts_e"},
		"tʃʼ":    {properties: props("class_consonantal", "consonant", "manner_affricate", "manner_strident", "place_alveolar", "place_post-alveolar", "ejective"), backend: "tS_e"},
		"dʒ":     {properties: props("class_consonantal", "consonant", "manner_affricate", "place_alveolar", "place_post-alveolar", "voiced"), backend: "d_0Z"},
		"a":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_low", "position_front"), backend: "a"},
		"kʰ":     {properties: props("class_consonantal", "consonant", "manner_plosive", "place_velar", "aspirated"), backend: "k_h"},
		"b":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_bilabial", "voiced"), backend: "b"},
		"kɬʼ":    {properties: props("class_consonantal", "consonant", "manner_affricate", "place_velar", "place_alveolar", "ejective"), backend: "kK_e"},
		"ɦ":      {properties: props("consonant", "manner_fricative", "place_glottal", "voiced"), backend: "h_v"},
		"ǀ":      {properties: props("class_consonantal", "consonant", "manner_click", "place_dental"), backend: "_c"},
		"d":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_alveolar", "voiced"), backend: "d"},
		"ǃ":      {properties: props("class_consonantal", "consonant", "manner_click", "place_post-alveolar"), backend: "_q"},
		"ɛ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_mid", "position_front"), backend: "E"},
		"ǁ":      {properties: props("class_consonantal", "consonant", "manner_click", "manner_lateral", "place_alveolar"), backend: "_x"},
		"f":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_labiodental"), backend: "f"},
		"g":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_velar", "voiced"), backend: "g"},
		"ǀʰ":     {properties: props("class_consonantal", "consonant", "manner_click", "place_dental", "aspirated"), backend: "_c_h"},
		"h":      {properties: props("consonant", "manner_fricative", "place_glottal"), backend: "h"},
		"ǃʰ":     {properties: props("class_consonantal", "consonant", "manner_click", "place_post-alveolar", "aspirated"), backend: "_q_h"},
		"ǁʰ":     {properties: props("class_consonantal", "consonant", "manner_click", "manner_lateral", "place_alveolar", "aspirated"), backend: "_x_h"},
		"i":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_high", "position_front"), backend: "i"},
		"j":      {properties: props("class_sonorant", "consonant", "manner_approximant", "manner_glide", "place_palatal", "voiced"), backend: "j"},
		"ɲ":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_nasal", "place_palatal", "voiced"), backend: "J"},
		"k":      {properties: props("class_consonantal", "consonant", "manner_plosive", "place_velar"), backend: "k"},
		"ɬ":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_lateral", "place_alveolar"), backend: "K"},
		"ǀ̬":      {properties: props("class_consonantal", "consonant", "manner_click", "place_dental", "voiced"), backend: "_c_v"},
		"l":      {properties: props("class_sonorant", "class_consonantal", "manner_approximant", "manner_liquid", "manner_lateral", "place_alveolar", "voiced"), backend: "l"},
		"ǃ̬":      {properties: props("class_consonantal", "consonant", "manner_click", "place_post-alveolar", "voiced"), backend: "_q_v"},
		"m":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_nasal", "place_bilabial", "voiced"), backend: "m"},
		"n":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_nasal", "place_alveolar", "voiced"), backend: "n"},
		"ŋ":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_nasal", "place_velar", "voiced"), backend: "N"},
		"ǁ̬":      {properties: props("class_consonantal", "consonant", "manner_click", "manner_lateral", "place_alveolar", "voiced"), backend: "_x_v"},
		"ɔ":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_mid", "position_back", "articulation_rounded"), backend: "O"},
		"dz":     {properties: props("class_consonantal", "consonant", "manner_affricate", "place_alveolar", "voiced"), backend: "dz"},
		"r":      {properties: props("class_sonorant", "class_consonantal", "consonant", "manner_trill", "place_alveolar", "voiced"), backend: "r"},
		"s":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_alveolar"), backend: "s"},
		"ʃ":      {properties: props("class_consonantal", "consonant", "manner_fricative", "place_post-alveolar"), backend: "S"},
		"u":      {properties: props("class_sonorant", "class_syllabic", "vowel", "duration_short", "height_high", "position_back", "articulation_rounded"), backend: "u"},
		"v":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_labiodental", "voiced"), backend: "v"},
		"w":      {properties: props("class_sonorant", "consonant", "manner_approximant", "manner_glide", "place_labial", "place_velar", "voiced"), backend: "w"},
		"z":      {properties: props("class_consonantal", "consonant", "manner_fricative", "manner_strident", "place_alveolar", "voiced"), backend: "z"},
	}
	return z
}

// Syllabify implements the Nguni/Sotho left-to-right sweep: a syllabic
// consonant followed by anything ends a syllable here; a three-phone
// V·C·C sequence closes as V·C and opens a new syllable on the trailing C;
// a lone vowel closes a syllable; anything else attaches to the current
// syllable.
func (z *Zulu) Syllabify(phones []string) [][]string {
	sylls := [][]string{{}}
	cur := 0
	rest := append([]string(nil), phones...)

	for len(rest) > 0 {
		p := rest[0]

		if z.IsSyllabicConsonant(p) {
			sylls[cur] = append(sylls[cur], p)
			rest = rest[1:]
			if len(rest) > 0 {
				sylls = append(sylls, nil)
				cur++
			}
			continue
		}

		if len(rest) >= 3 {
			next, nnext := rest[1], rest[2]
			if z.IsVowel(p) && !z.IsVowel(next) && !z.IsVowel(nnext) {
				sylls[cur] = append(sylls[cur], p, next)
				rest = rest[2:]
				if len(rest) > 0 {
					sylls = append(sylls, nil)
					cur++
				}
				continue
			}
		}

		if z.IsVowel(p) {
			sylls[cur] = append(sylls[cur], p)
			rest = rest[1:]
			if len(rest) > 0 {
				sylls = append(sylls, nil)
				cur++
			}
			continue
		}

		sylls[cur] = append(sylls[cur], p)
		rest = rest[1:]
	}

	return sylls
}

// GuessSylStress has no language-specific override in the original Zulu
// voice; it falls back to a string of zeros, left to the caller
// ([pkg/uttproc]'s Phonetizer) to override from tone rules or the lexicon.
func (z *Zulu) GuessSylStress(syllables [][]string) string {
	out := make([]byte, len(syllables))
	for i := range out {
		out[i] = '0'
	}
	return string(out)
}
