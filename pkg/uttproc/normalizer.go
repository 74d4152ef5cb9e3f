package uttproc

import (
	"strings"

	"github.com/synthline/ttscore/pkg/hrg"
)

// NewNormalizer returns the normalizer stage: lowercases each Token's text,
// splits on internal hyphens into one Word per part, substitutes common
// ligatures, and creates Word items as daughters of each Token.
//
// Each Word is new content that is also added as a daughter of its Token,
// satisfying the invariant that every Word's content is also reachable via
// the Token relation (the Word's Token-relation item, whose parent is the
// Token). A Token that splits into several hyphen-separated parts gets one
// additional Token item inserted immediately after it per extra part
// (mirroring the original's token-splitting behavior), each holding that
// part's Word as its daughter, so the same invariant holds for every part,
// not just the first.
//
// For multi-language voices (res.LanguageLexicons non-nil), each Word is
// tagged with a "lang" feature: an explicit leading "|tag|" marker on the
// raw token text wins, then an ALL-CAPS heuristic (res.DefaultLanguage is
// assumed to be the base language; an all-uppercase word is tagged
// "eng" by convention, matching the original's acronym-is-English
// heuristic), then lexicon membership, then res.DefaultLanguage.
func NewNormalizer(res *Resources) StageFunc {
	return func(u *hrg.Utterance, _ string) error {
		tokenRel, ok := u.GetRelation("Token")
		if !ok {
			return nil
		}
		wordRel := u.Relation("Word")

		for _, tok := range tokenRel.Items() {
			raw := tok.Features().String("name")
			lang, body := splitLanguageMarker(raw)

			parts := strings.Split(body, "-")
			nonEmpty := parts[:0]
			for _, p := range parts {
				if p != "" {
					nonEmpty = append(nonEmpty, p)
				}
			}
			parts = nonEmpty
			if len(parts) == 0 {
				parts = []string{body}
			}

			anchor := tok
			for i, part := range parts {
				lowered := applyLigatures(strings.ToLower(part), res.Ligatures)

				var tokenForPart hrg.Item
				if i == 0 {
					tokenForPart = tok
					tokenForPart.SetFeature("name", lowered)
				} else {
					inserted, err := tokenRel.InsertItemAfter(anchor, nil)
					if err != nil {
						return err
					}
					inserted.SetFeature("name", lowered)
					tokenForPart = inserted
					anchor = inserted
				}

				word, err := wordRel.AppendItem(nil)
				if err != nil {
					return err
				}
				word.SetFeature("name", lowered)

				if res.LanguageLexicons != nil {
					word.SetFeature("lang", resolveLanguage(lang, part, lowered, res))
				}

				if _, err := tokenForPart.AddDaughter(&word); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// splitLanguageMarker strips a leading "|tag|" marker off raw, returning
// the tag (empty if none) and the remaining text.
func splitLanguageMarker(raw string) (lang, body string) {
	if !strings.HasPrefix(raw, "|") {
		return "", raw
	}
	rest := raw[1:]
	end := strings.IndexByte(rest, '|')
	if end < 0 {
		return "", raw
	}
	return rest[:end], rest[end+1:]
}

func applyLigatures(word string, ligatures map[string]string) string {
	for lig, expansion := range ligatures {
		word = strings.ReplaceAll(word, lig, expansion)
	}
	return word
}

func resolveLanguage(explicitTag, original, lowered string, res *Resources) string {
	if explicitTag != "" {
		return explicitTag
	}
	if original != "" && isAllCaps(original) {
		return "eng"
	}
	for tag, lex := range res.LanguageLexicons {
		if lex[lowered] {
			return tag
		}
	}
	return res.DefaultLanguage
}

func isAllCaps(s string) bool {
	seenLetter := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			seenLetter = true
		}
	}
	return seenLetter
}
