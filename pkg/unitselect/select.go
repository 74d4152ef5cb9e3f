package unitselect

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/synthline/ttscore/pkg/hrg"
)

// LPCTrack holds one linear-predictive-coding analysis: a frame time
// (seconds, relative to the unit's own start) and coefficient vector per
// frame.
type LPCTrack struct {
	Times  []float64
	Values [][]float64
}

// Candidate is one catalogue entry for a given unit name: its acoustic
// data (LPC track, residual samples, join coefficients) plus the
// linguistic context fields [TargetScore]/[WordTargetScore] compare
// against a target unit.
type Candidate struct {
	LPC           LPCTrack
	Residual      []float64
	Dur           float64
	LeftJoinCoef  []float64
	RightJoinCoef []float64

	NumSyls            int
	PositionInSyl      string
	PositionInWord     string
	PositionInPhrase   string
	ContextNextSegment string
	ContextPrevSegment string

	ContextPrevWord string
	ContextNextWord string
}

// Catalogue maps a unit name to every recorded candidate for it.
type Catalogue map[string][]*Candidate

// LoadCatalogue decodes a JSON-encoded [Catalogue] from r. This is the
// concrete realization of a [voice.Bundle]'s CatalogueSource: the
// catalogue itself (LPC tracks, residuals, join coefficients for every
// recorded unit) is large enough that it is kept as its own opaque blob
// rather than folded into the bundle's jsonb row.
func LoadCatalogue(r io.Reader) (Catalogue, error) {
	var c Catalogue
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("unitselect: decode catalogue: %w", err)
	}
	return c, nil
}

// PruningConfig is the Viterbi search's per-column pruning parameters,
// configurable per voice.
type PruningConfig struct {
	// Delta is the score-delta-from-best fraction below which a
	// candidate is pruned (default 0.01).
	Delta float64
	// K is the maximum number of surviving candidates per column after
	// delta-pruning (default 100).
	K int
}

// DefaultPruningConfig matches the original's hardcoded prunescoredelta/
// prunenumcands.
var DefaultPruningConfig = PruningConfig{Delta: 0.01, K: 100}

// TargetScore is the half-phone target-cost function: the syllable-count
// ratio (whichever of target/candidate is smaller, over the larger) plus
// one point per matching context field, normalized to [0, 1] over 6
// comparisons.
func TargetScore(target hrg.Item, candidate *Candidate) float64 {
	score := 0.0

	tsylls := target.Features().Int("num_syls")
	csylls := candidate.NumSyls
	if tsylls == 0 && csylls == 0 {
		score += 1.0
	} else if csylls >= tsylls && csylls > 0 {
		score += float64(tsylls) / float64(csylls)
	} else if tsylls > 0 {
		score += float64(csylls) / float64(tsylls)
	}

	if target.Features().String("position_in_syl") == candidate.PositionInSyl {
		score += 1.0
	}
	if target.Features().String("position_in_word") == candidate.PositionInWord {
		score += 1.0
	}
	if target.Features().String("position_in_phrase") == candidate.PositionInPhrase {
		score += 1.0
	}
	if target.Features().String("context_nextsegment") == candidate.ContextNextSegment {
		score += 1.0
	}
	if target.Features().String("context_prevsegment") == candidate.ContextPrevSegment {
		score += 1.0
	}
	return score / 6.0
}

// WordTargetScore is the word-unit target-cost function: 0.5 for a
// matching previous-word context, 0.5 for a matching next-word context.
func WordTargetScore(target hrg.Item, candidate *Candidate) float64 {
	score := 0.0
	if target.Features().String("context_prevword") == candidate.ContextPrevWord {
		score += 0.5
	}
	if target.Features().String("context_nextword") == candidate.ContextNextWord {
		score += 0.5
	}
	return score
}

func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// joinScore is "6/(6+distance)" per the original, a scaling factor
// producing a (0, 1] score that falls off with acoustic distance between
// the candidate's left join coefficients and the previous column's
// chosen candidate's right join coefficients.
func joinScore(left, right []float64) float64 {
	return 6.0 / (6.0 + euclidean(left, right))
}

type trellisNode struct {
	candidate  *Candidate
	prevIndex  int // -1 at the first column
	totalScore float64
}

// SelectUnits runs a pruned Viterbi search over catalogue for every
// target Unit item in u (in Unit relation order), scoring each candidate
// via scoreFn (use [TargetScore] for half-phones, [WordTargetScore] for
// words), and annotates each target Unit item's "selected_unit" feature
// with the winning *Candidate. Returns an error if any target unit's name
// has no catalogue entries at all.
func SelectUnits(u *hrg.Utterance, catalogue Catalogue, cfg PruningConfig, scoreFn func(hrg.Item, *Candidate) float64) error {
	unitRel, ok := u.GetRelation(UnitRelationName)
	if !ok {
		return fmt.Errorf("unitselect: utterance has no Unit relation")
	}
	targets := unitRel.Items()
	if len(targets) == 0 {
		return nil
	}
	if cfg.Delta <= 0 && cfg.K <= 0 {
		cfg = DefaultPruningConfig
	}

	name0 := targets[0].Features().String("name")
	cands0 := catalogue[name0]
	if len(cands0) == 0 {
		return fmt.Errorf("unitselect: no catalogue candidates for unit %q", name0)
	}
	trellis := make([][]trellisNode, 1, len(targets))
	trellis[0] = make([]trellisNode, len(cands0))
	for i, c := range cands0 {
		trellis[0][i] = trellisNode{candidate: c, prevIndex: -1, totalScore: 0.0}
	}

	for t := 1; t < len(targets); t++ {
		target := targets[t]
		name := target.Features().String("name")
		cands := catalogue[name]
		if len(cands) == 0 {
			return fmt.Errorf("unitselect: no catalogue candidates for unit %q", name)
		}
		prevCol := trellis[t-1]

		targetScores := make([]float64, len(cands))
		for i, c := range cands {
			targetScores[i] = scoreFn(target, c)
		}

		col := make([]trellisNode, len(cands))
		for i, c := range cands {
			bestJ, bestScore := 0, math.Inf(-1)
			for j, prev := range prevCol {
				score := joinScore(c.LeftJoinCoef, prev.candidate.RightJoinCoef) + targetScores[i] + prev.totalScore
				if score > bestScore {
					bestScore = score
					bestJ = j
				}
			}
			col[i] = trellisNode{candidate: c, prevIndex: bestJ, totalScore: bestScore}
		}

		col = pruneColumn(col, cfg)
		trellis = append(trellis, col)
	}

	bestIndex := 0
	bestScore := math.Inf(-1)
	lastCol := trellis[len(trellis)-1]
	for i, n := range lastCol {
		if n.totalScore > bestScore {
			bestScore = n.totalScore
			bestIndex = i
		}
	}

	bestPath := make([]*Candidate, len(trellis))
	idx := bestIndex
	for t := len(trellis) - 1; t >= 0; t-- {
		node := trellis[t][idx]
		bestPath[t] = node.candidate
		idx = node.prevIndex
	}

	for i, target := range targets {
		target.SetFeature("selected_unit", bestPath[i])
	}
	return nil
}

// pruneColumn keeps every node within cfg.Delta of the column's best total
// score, then caps the survivors at cfg.K by score, matching the original's
// two-stage (score-delta, then top-K) prune. cfg.Delta <= 0 disables the
// delta stage entirely rather than degrading to "only the column's own
// maximum survives": a candidate that looks suboptimal at this column can
// still lead to the true best path once later columns' join costs are
// added in, so δ=0 has to mean "no delta pruning" for the K-bounded search
// to stay equivalent to the brute-force score table.
func pruneColumn(col []trellisNode, cfg PruningConfig) []trellisNode {
	kept := col
	if cfg.Delta > 0 {
		best := math.Inf(-1)
		for _, n := range col {
			if n.totalScore > best {
				best = n.totalScore
			}
		}
		threshold := best - cfg.Delta*best
		kept = col[:0:0]
		for _, n := range col {
			if n.totalScore >= threshold {
				kept = append(kept, n)
			}
		}
	}
	if cfg.K > 0 && len(kept) > cfg.K {
		sorted := append([]trellisNode(nil), kept...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].totalScore > sorted[j].totalScore })
		kept = sorted[:cfg.K]
	}
	return kept
}
