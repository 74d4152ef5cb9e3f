package uttproc

import (
	"strings"

	"github.com/synthline/ttscore/pkg/hrg"
)

// PhraseRelationName is the name (and the fixed per-phrase item name) of
// the prosodic-phrase relation and its items.
const PhraseRelationName = "Phrase"

// BBPhraseName is the fixed name every Phrase item carries.
const BBPhraseName = "BB"

// NewPhrasifier returns the phrasifier stage: appends one initial Phrase,
// then walks the Word relation opening a new Phrase after each Word that
// both closes its Token (is that Token's last Word daughter) and whose
// Token's postpunc contains a phrasing-punctuation character, or (for
// multi-language voices) whose following Word is a listed conjunction.
func NewPhrasifier(res *Resources) StageFunc {
	phrasingPunct := res.PhrasingPunctuation
	if phrasingPunct == "" {
		phrasingPunct = DefaultPhrasingPunctuation
	}
	return func(u *hrg.Utterance, _ string) error {
		wordRel, ok := u.GetRelation("Word")
		if !ok {
			return nil
		}
		phraseRel := u.Relation(PhraseRelationName)
		phrase, err := phraseRel.AppendItem(nil)
		if err != nil {
			return err
		}
		phrase.SetFeature("name", BBPhraseName)

		words := wordRel.Items()
		for i, w := range words {
			if _, err := phrase.AddDaughter(&w); err != nil {
				return err
			}

			if i == len(words)-1 {
				continue
			}

			closesToken := false
			if node, ok := w.InRelation("Token"); ok {
				if tok, ok := node.Parent(); ok {
					if last, ok := tok.LastDaughter(); ok && last.Equal(w) {
						postpunc := tok.Features().String("postpunc")
						if postpunc != "" && strings.ContainsAny(postpunc, phrasingPunct) {
							closesToken = true
						}
					}
				}
			}

			opensBeforeConjunction := false
			if res.PhraseConjunctions != nil {
				next := words[i+1]
				if res.PhraseConjunctions[next.Features().String("name")] {
					opensBeforeConjunction = true
				}
			}

			if closesToken || opensBeforeConjunction {
				phrase, err = phraseRel.AppendItem(nil)
				if err != nil {
					return err
				}
				phrase.SetFeature("name", BBPhraseName)
			}
		}
		return nil
	}
}
