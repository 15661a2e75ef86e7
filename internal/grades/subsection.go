package grades

import (
	"fmt"

	"github.com/mind-engage/coursegrades/internal/blocks"
	"github.com/mind-engage/coursegrades/internal/scores"
)

// computeSubsection builds a SubsectionGrade live: it walks every
// possibly-scored descendant of subsection in document order, resolves each
// scorable block through the four-source resolver, and accumulates the two
// totals. persistedBlocks supplies the per-block snapshots from a prior
// computation; pass nil when none exist.
func computeSubsection(
	tree *blocks.CourseTree,
	cls *blocks.Classifier,
	subsection blocks.UsageKey,
	subs scores.SubmissionScores,
	attempts scores.AttemptScores,
	persistedBlocks map[blocks.UsageKey]scores.PersistedBlock,
) (*SubsectionGrade, error) {
	meta, ok := tree.Get(subsection)
	if !ok {
		return nil, fmt.Errorf("subsection %s not in course %s", subsection, tree.CourseID)
	}
	g := newSubsectionGrade(tree.CourseID, meta)

	var walk func(k blocks.UsageKey)
	walk = func(k blocks.UsageKey) {
		m, ok := tree.Get(k)
		if !ok || !cls.PossiblyScored(m.Type) {
			return
		}
		if cls.Scorable(m.Type) {
			g.accumulate(scores.Get(subs, attempts, persistedFor(persistedBlocks, k), m))
		}
		for _, child := range tree.Children(k) {
			walk(child)
		}
	}
	walk(subsection)
	return g, nil
}

// subsectionFromModel rehydrates a SubsectionGrade from a persisted snapshot.
// Only the blocks recorded at save time are resolved (no full traversal);
// the current tree supplies display metadata, and blocks since removed from
// the content are skipped. The submissions and attempt stores are still
// consulted so externally-updated scores show through.
func subsectionFromModel(
	tree *blocks.CourseTree,
	model PersistedSubsectionGrade,
	subs scores.SubmissionScores,
	attempts scores.AttemptScores,
) (*SubsectionGrade, error) {
	meta, ok := tree.Get(model.UsageKey)
	if !ok {
		return nil, fmt.Errorf("subsection %s not in course %s", model.UsageKey, tree.CourseID)
	}
	g := newSubsectionGrade(tree.CourseID, meta)

	for _, rec := range model.BlockRecords {
		m, ok := tree.Get(rec.Location)
		if !ok {
			continue
		}
		pb := scores.PersistedBlock{
			Location:    rec.Location,
			Weight:      rec.Weight,
			RawPossible: rec.RawPossible,
			Graded:      rec.Graded,
		}
		g.accumulate(scores.Get(subs, attempts, &pb, m))
	}
	return g, nil
}

func newSubsectionGrade(courseID string, meta blocks.BlockMeta) *SubsectionGrade {
	return &SubsectionGrade{
		Location:    meta.Location,
		CourseID:    courseID,
		URLName:     meta.Location.URLName(),
		DisplayName: meta.DisplayName,
	}
}

// accumulate folds one resolved score into the totals. Every score counts
// toward AllTotal; only graded scores count toward GradedTotal.
func (g *SubsectionGrade) accumulate(ps scores.ProblemScore) {
	g.ProblemScores = append(g.ProblemScores, ps)
	g.AllTotal.add(ps.WeightedEarned, ps.WeightedPossible)
	if ps.Graded {
		g.GradedTotal.add(ps.WeightedEarned, ps.WeightedPossible)
	}
}

// toModel snapshots the grade for persistence. Submissions-sourced scores
// carry no raw possible; their block records store zero, matching "the raw
// score the learner was graded on" being unknown to this layer.
func (g *SubsectionGrade) toModel(userID string, createdAt int64) PersistedSubsectionGrade {
	records := make([]BlockRecord, 0, len(g.ProblemScores))
	for _, ps := range g.ProblemScores {
		rec := BlockRecord{
			Location: ps.Location,
			Weight:   ps.Weight,
			Graded:   ps.Graded,
		}
		if ps.RawPossible != nil {
			rec.RawPossible = *ps.RawPossible
		}
		records = append(records, rec)
	}
	return PersistedSubsectionGrade{
		UserID:         userID,
		CourseID:       g.CourseID,
		UsageKey:       g.Location,
		EarnedAll:      g.AllTotal.Earned,
		PossibleAll:    g.AllTotal.Possible,
		EarnedGraded:   g.GradedTotal.Earned,
		PossibleGraded: g.GradedTotal.Possible,
		BlockRecords:   records,
		CreatedAt:      createdAt,
	}
}

func persistedFor(m map[blocks.UsageKey]scores.PersistedBlock, k blocks.UsageKey) *scores.PersistedBlock {
	if m == nil {
		return nil
	}
	if pb, ok := m[k]; ok {
		return &pb
	}
	return nil
}

// subsectionKeys lists every subsection of the course in document order.
func subsectionKeys(tree *blocks.CourseTree) []blocks.UsageKey {
	var out []blocks.UsageKey
	var walk func(k blocks.UsageKey)
	walk = func(k blocks.UsageKey) {
		m, ok := tree.Get(k)
		if !ok {
			return
		}
		if m.Type == "sequential" {
			out = append(out, k)
			return
		}
		for _, child := range tree.Children(k) {
			walk(child)
		}
	}
	walk(tree.Root)
	return out
}
