package unitselect

import (
	"math"
	"testing"

	"github.com/synthline/ttscore/pkg/hrg"
)

// buildSegSequence builds one bare Segment per name (no SylStructure,
// Syllable, Word or Phrase wiring), for boundary-pause tests.
func buildSegSequence(t *testing.T, names []string) *hrg.Utterance {
	t.Helper()
	u := hrg.New(nil)
	segRel := u.Relation("Segment")
	for _, n := range names {
		seg, err := segRel.AppendItem(nil)
		if err != nil {
			t.Fatalf("append seg: %v", err)
		}
		seg.SetFeature("name", n)
	}
	return u
}

func TestBuildHalfPhoneTargetUnitsSuppressesBoundaryPause(t *testing.T) {
	u := buildSegSequence(t, []string{"pau", "k", "pau"})
	if err := BuildHalfPhoneTargetUnits(u, "pau"); err != nil {
		t.Fatalf("BuildHalfPhoneTargetUnits: %v", err)
	}
	unitRel, _ := u.GetRelation(UnitRelationName)
	var names []string
	for _, unit := range unitRel.Items() {
		names = append(names, unit.Features().String("name"))
	}

	want := []string{"right-pau", "left-k", "right-k", "left-pau"}
	if len(names) != len(want) {
		t.Fatalf("got %d units %v, want %d: %v", len(names), names, len(want), want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("unit[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestBuildHalfPhoneTargetUnitsKeepsNonBoundaryPause(t *testing.T) {
	u := buildSegSequence(t, []string{"k", "pau", "t"})
	if err := BuildHalfPhoneTargetUnits(u, "pau"); err != nil {
		t.Fatalf("BuildHalfPhoneTargetUnits: %v", err)
	}
	unitRel, _ := u.GetRelation(UnitRelationName)
	var names []string
	for _, unit := range unitRel.Items() {
		names = append(names, unit.Features().String("name"))
	}
	want := []string{"left-k", "right-k", "left-pau", "right-pau", "left-t", "right-t"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
}

func TestSelectUnitsPicksBetterJoin(t *testing.T) {
	u := hrg.New(nil)
	unitRel := u.Relation(UnitRelationName)

	u1, _ := unitRel.AppendItem(nil)
	u1.SetFeature("name", "a")
	u2, _ := unitRel.AppendItem(nil)
	u2.SetFeature("name", "b")

	catalogue := Catalogue{
		"a": {
			{RightJoinCoef: []float64{0, 0}},
			{RightJoinCoef: []float64{10, 10}},
		},
		"b": {
			{LeftJoinCoef: []float64{0, 0}},
		},
	}

	if err := SelectUnits(u, catalogue, DefaultPruningConfig, func(hrg.Item, *Candidate) float64 { return 0 }); err != nil {
		t.Fatalf("SelectUnits: %v", err)
	}

	selected, _ := u1.Features()["selected_unit"].(*Candidate)
	if selected == nil {
		t.Fatal("expected a selected_unit on first unit")
	}
	if selected.RightJoinCoef[0] != 0 {
		t.Errorf("expected candidate with closest join coefficients selected, got %v", selected.RightJoinCoef)
	}
}

func TestSelectUnitsErrorsOnEmptyCatalogueEntry(t *testing.T) {
	u := hrg.New(nil)
	unitRel := u.Relation(UnitRelationName)
	unit, _ := unitRel.AppendItem(nil)
	unit.SetFeature("name", "missing")

	err := SelectUnits(u, Catalogue{}, DefaultPruningConfig, func(hrg.Item, *Candidate) float64 { return 0 })
	if err == nil {
		t.Fatal("expected an error for a unit name with no catalogue candidates")
	}
}

func TestSynthFilterOffByOneRegression(t *testing.T) {
	// A single frame [1, 0.5] spanning the whole 4-sample residual: the
	// pinned `j-k > 0` bound means sample j=1 never looks back at
	// samples[0] (since j-k=1-1=0, not > 0), so the filter's
	// contribution at j=1 is 0, not frame[1]*samples[0].
	residual := []float64{10, 20, 0, 0}
	times := []float64{1.0}
	lpcs := [][]float64{{1, 0.5}}

	got := SynthFilter(times, lpcs, residual, 4)
	if got[0] != 10 {
		t.Errorf("samples[0] = %d, want 10 (pure residual, no prior samples to predict from)", got[0])
	}
	if got[1] != 20 {
		t.Errorf("samples[1] = %d, want 20 (j-k=0 is excluded by the strict > bound, so no prediction term)", got[1])
	}
}

// TestSelectUnitsBruteForceEquivalenceAtZeroDelta pins Testable Property #5:
// with Delta=0 and K >= len(candidates), the pruned Viterbi search must
// still return the global argmax over every unpruned path. This also
// regresses the pruneColumn off-by-one where a strict ">" threshold
// comparison dropped a column's own maximum whenever Delta was exactly 0,
// collapsing every later column to empty and panicking the traceback.
func TestSelectUnitsBruteForceEquivalenceAtZeroDelta(t *testing.T) {
	u := hrg.New(nil)
	unitRel := u.Relation(UnitRelationName)
	names := []string{"a", "b", "c"}
	for _, n := range names {
		unit, _ := unitRel.AppendItem(nil)
		unit.SetFeature("name", n)
	}

	catalogue := Catalogue{
		"a": {
			{RightJoinCoef: []float64{0, 0}},
			{RightJoinCoef: []float64{1, 2}},
			{RightJoinCoef: []float64{5, 5}},
		},
		"b": {
			{LeftJoinCoef: []float64{0, 1}, RightJoinCoef: []float64{2, 0}},
			{LeftJoinCoef: []float64{4, 4}, RightJoinCoef: []float64{0, 0}},
			{LeftJoinCoef: []float64{1, 1}, RightJoinCoef: []float64{3, 1}},
		},
		"c": {
			{LeftJoinCoef: []float64{2, 0}},
			{LeftJoinCoef: []float64{0, 0}},
			{LeftJoinCoef: []float64{6, 6}},
		},
	}

	cfg := PruningConfig{Delta: 0, K: 1000}
	noScore := func(hrg.Item, *Candidate) float64 { return 0 }
	if err := SelectUnits(u, catalogue, cfg, noScore); err != nil {
		t.Fatalf("SelectUnits: %v", err)
	}

	// Brute force: enumerate every (a,b,c) candidate combination and find
	// the path with the greatest summed join score (targetScores are all
	// 0 here, so total score is pure join score).
	bestScore := math.Inf(-1)
	var bestPath [3]*Candidate
	for _, ca := range catalogue["a"] {
		for _, cb := range catalogue["b"] {
			for _, cc := range catalogue["c"] {
				score := joinScore(cb.LeftJoinCoef, ca.RightJoinCoef) + joinScore(cc.LeftJoinCoef, cb.RightJoinCoef)
				if score > bestScore {
					bestScore = score
					bestPath = [3]*Candidate{ca, cb, cc}
				}
			}
		}
	}

	selected := make([]*Candidate, 3)
	for i, unit := range unitRel.Items() {
		c, _ := unit.Features()["selected_unit"].(*Candidate)
		if c == nil {
			t.Fatalf("unit %d has no selected_unit", i)
		}
		selected[i] = c
	}

	gotScore := joinScore(selected[1].LeftJoinCoef, selected[0].RightJoinCoef) +
		joinScore(selected[2].LeftJoinCoef, selected[1].RightJoinCoef)

	if math.Abs(gotScore-bestScore) > 1e-9 {
		t.Errorf("SelectUnits total score = %v, want brute-force max %v (path %v)", gotScore, bestScore, bestPath)
	}
	for i := range selected {
		if selected[i] != bestPath[i] {
			t.Errorf("selected[%d] = %+v, want brute-force best %+v", i, selected[i], bestPath[i])
		}
	}
}

func TestSiblingPositionClassification(t *testing.T) {
	u := hrg.New(nil)
	rel := u.Relation("Syllable")
	a, _ := rel.AppendItem(nil)
	b, _ := rel.AppendItem(nil)
	c, _ := rel.AppendItem(nil)

	if got := siblingPosition(a); got != PositionInitial {
		t.Errorf("first item position = %q, want initial", got)
	}
	if got := siblingPosition(b); got != PositionMedial {
		t.Errorf("middle item position = %q, want medial", got)
	}
	if got := siblingPosition(c); got != PositionFinal {
		t.Errorf("last item position = %q, want final", got)
	}
}
