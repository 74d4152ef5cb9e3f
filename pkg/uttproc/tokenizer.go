package uttproc

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/synthline/ttscore/pkg/hrg"
)

// DefaultPunctuation is the set of characters stripped as a single
// leading/trailing prepunc/postpunc character from a raw whitespace token.
const DefaultPunctuation = "\"`.,:;!?(){}[]-"

// combining diacritics the Yoruba-style tokenizer repairs after NFKD
// decomposition, per original_source/ttslab/tokenizers.py's
// YorubaTokenizer: grave, acute, and dot-below.
const (
	combGrave  = "̀"
	combAccent = "́"
	combUnder  = "̣"
)

var combiningDiacritics = combGrave + combAccent + combUnder

const smallBaseChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewTokenizer returns the tokenizer stage. When normalizeUnicode is true,
// the input text is NFKD-normalized and its stray combining diacritics are
// repaired before splitting, per the Yoruba tokenizer's three-step
// algorithm (normalize → fix post-whitespace diacritics → collapse
// duplicates) — needed for tone-marked orthographies, harmless for plain
// ASCII text. A token that, after stripping punctuation, contains none of
// smallBaseChars is dropped rather than appended (a dangling diacritic is
// not a word).
func NewTokenizer(normalizeUnicode bool, punctuation string) StageFunc {
	if punctuation == "" {
		punctuation = DefaultPunctuation
	}
	return func(u *hrg.Utterance, _ string) error {
		text, ok := u.Features["text"].(string)
		if !ok || text == "" {
			return &UttProcessorError{Reason: "utterance needs a non-empty 'text' feature"}
		}

		if normalizeUnicode {
			text = norm.NFKD.String(text)
			text = fixPostWhitespaceDiacritics(text)
			text = collapseDuplicateDiacritics(text)
			u.Features["text"] = text
		}

		tokenRel := u.Relation("Token")
		for _, raw := range strings.Fields(text) {
			prepunc, postpunc, stripped := stripPunctuation(raw, punctuation)
			if stripped == "" {
				continue
			}
			if normalizeUnicode && !strings.ContainsAny(strings.ToLower(stripped), smallBaseChars) {
				continue
			}
			item, err := tokenRel.AppendItem(nil)
			if err != nil {
				return err
			}
			item.SetFeature("name", stripped)
			if prepunc != "" {
				item.SetFeature("prepunc", prepunc)
			}
			if postpunc != "" {
				item.SetFeature("postpunc", postpunc)
			}
		}
		return nil
	}
}

// stripPunctuation strips at most one leading and one trailing punctuation
// character (from the punctuation set) off raw, returning them along with
// the remaining token body.
func stripPunctuation(raw, punctuation string) (prepunc, postpunc, body string) {
	body = raw
	if body == "" {
		return
	}
	if strings.ContainsRune(punctuation, rune(body[0])) {
		prepunc = body[:1]
		body = body[1:]
	}
	if body == "" {
		return
	}
	if strings.ContainsRune(punctuation, rune(body[len(body)-1])) {
		postpunc = body[len(body)-1:]
		body = body[:len(body)-1]
	}
	return
}

// fixPostWhitespaceDiacritics moves a combining diacritic that landed
// after a whitespace split back onto the preceding run of text, undoing
// the artifact NFKD decomposition can introduce at token boundaries.
func fixPostWhitespaceDiacritics(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if isSpace(r) && i+1 < len(runes) && strings.ContainsRune(combiningDiacritics, runes[i+1]) {
			b.WriteRune(runes[i+1])
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseDuplicateDiacritics collapses any combining diacritic
// immediately followed by itself into a single occurrence.
func collapseDuplicateDiacritics(s string) string {
	for _, d := range []string{combGrave, combAccent, combUnder} {
		s = strings.ReplaceAll(s, d+d, d)
	}
	return s
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
