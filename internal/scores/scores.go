// Package scores resolves a learner's score for a single block by merging
// four independent, possibly-stale score stores into one record.
package scores

import (
	"fmt"

	"github.com/mind-engage/coursegrades/internal/blocks"
)

// WeightedPair is an (earned, possible) score already scaled to weight.
type WeightedPair struct {
	Earned   float64 `json:"earned"`
	Possible float64 `json:"possible"`
}

// SubmissionScores maps serialized usage keys to weighted scores reported by
// the external submissions service, already filtered to one (user, course).
// Submissions report only weighted values; per its contract Possible > 0 and
// Earned >= 0 whenever an entry is present.
type SubmissionScores map[string]WeightedPair

// AttemptScore is one row of the historical per-attempt store. A row counts
// as present only when Total is non-nil; Correct may be missing even then.
type AttemptScore struct {
	Correct *float64
	Total   *float64
}

// AttemptScores maps usage key to the per-attempt record for one
// (user, course), as returned by the attempt-store collaborator.
type AttemptScores map[blocks.UsageKey]AttemptScore

// PersistedBlock is the snapshot of grading parameters written by a prior
// grade computation. Its weight and graded flag describe what the learner was
// graded on and always win over the live block annotations, so edits to
// content after an attempt do not silently change a recorded grade.
type PersistedBlock struct {
	Location    blocks.UsageKey
	Weight      *float64
	RawPossible float64
	Graded      bool
}

// ProblemScore is the resolved score for one (user, block) pair.
// RawEarned/RawPossible are nil exactly when the score came from the
// submissions service, which reports only weighted values.
type ProblemScore struct {
	RawEarned        *float64        `json:"raw_earned,omitempty"`
	RawPossible      *float64        `json:"raw_possible,omitempty"`
	WeightedEarned   float64         `json:"weighted_earned"`
	WeightedPossible float64         `json:"weighted_possible"`
	Weight           *float64        `json:"weight,omitempty"`
	Graded           bool            `json:"graded"`
	DisplayName      string          `json:"display_name"`
	Location         blocks.UsageKey `json:"location"`
}

// rawResult is the earned/possible quadruple produced by one score source.
type rawResult struct {
	rawEarned        *float64
	rawPossible      *float64
	weightedEarned   float64
	weightedPossible float64
}

// lookup is one optional score source: ok=false means "no value here, try
// the next source". A present zero score still reports ok=true.
type lookup func() (rawResult, bool)

// Get resolves the score for block, consulting sources in fixed precedence:
// submissions service, then the per-attempt store, then the persisted block
// snapshot, then the live block annotations. The first source that has a
// value wins. Weight and the graded flag always come from the persisted
// block when one exists, regardless of which source supplied the values.
func Get(subs SubmissionScores, attempts AttemptScores, persisted *PersistedBlock, block blocks.BlockMeta) ProblemScore {
	weight := weightFrom(persisted, block)

	res := firstPresent(
		func() (rawResult, bool) { return fromSubmissions(subs, block) },
		func() (rawResult, bool) { return fromAttempts(attempts, block, weight) },
		func() (rawResult, bool) { return fromBlock(persisted, block, weight), true },
	)

	// A zero denominator cannot contribute to a graded percentage.
	graded := false
	if res.weightedPossible > 0 {
		graded = gradedFrom(persisted, block)
	}

	return ProblemScore{
		RawEarned:        res.rawEarned,
		RawPossible:      res.rawPossible,
		WeightedEarned:   res.weightedEarned,
		WeightedPossible: res.weightedPossible,
		Weight:           weight,
		Graded:           graded,
		DisplayName:      block.DisplayName,
		Location:         block.Location,
	}
}

func firstPresent(lookups ...lookup) rawResult {
	for _, l := range lookups {
		if res, ok := l(); ok {
			return res
		}
	}
	// Unreachable: the live-block source always reports present.
	panic("scores: no score source produced a value")
}

func fromSubmissions(subs SubmissionScores, block blocks.BlockMeta) (rawResult, bool) {
	pair, ok := subs[block.Location.String()]
	if !ok {
		return rawResult{}, false
	}
	if pair.Earned < 0 || pair.Possible <= 0 {
		panic(fmt.Sprintf("scores: submissions contract violated for %s: earned=%v possible=%v",
			block.Location, pair.Earned, pair.Possible))
	}
	return rawResult{weightedEarned: pair.Earned, weightedPossible: pair.Possible}, true
}

// fromAttempts trusts the attempt store's possible value over everything
// persisted later: a learner may have attempted an earlier version of the
// content, and is graded on what was possible when they tried it.
func fromAttempts(attempts AttemptScores, block blocks.BlockMeta, weight *float64) (rawResult, bool) {
	rec, ok := attempts[block.Location]
	if !ok || rec.Total == nil {
		return rawResult{}, false
	}
	rawEarned := 0.0
	if rec.Correct != nil {
		rawEarned = *rec.Correct
	}
	rawPossible := *rec.Total
	we, wp := weightedScore(rawEarned, &rawPossible, weight)
	return rawResult{
		rawEarned:        &rawEarned,
		rawPossible:      &rawPossible,
		weightedEarned:   we,
		weightedPossible: wp,
	}, true
}

// fromBlock is the unconditional fallback: the learner has not attempted the
// block, so earned is zero and possible comes from the persisted snapshot if
// one exists, else from the live max-score annotation.
func fromBlock(persisted *PersistedBlock, block blocks.BlockMeta, weight *float64) rawResult {
	rawEarned := 0.0
	var rawPossible *float64
	if persisted != nil {
		v := persisted.RawPossible
		rawPossible = &v
	} else {
		rawPossible = block.MaxScore
	}
	we, wp := weightedScore(rawEarned, rawPossible, weight)
	return rawResult{
		rawEarned:        &rawEarned,
		rawPossible:      rawPossible,
		weightedEarned:   we,
		weightedPossible: wp,
	}
}

func weightFrom(persisted *PersistedBlock, block blocks.BlockMeta) *float64 {
	if persisted != nil {
		return persisted.Weight
	}
	return block.Weight
}

func gradedFrom(persisted *PersistedBlock, block blocks.BlockMeta) bool {
	if persisted != nil {
		return persisted.Graded
	}
	return explicitGraded(block)
}

// explicitGraded defaults to true so the block counts toward the graded
// total unless authoring explicitly opted it out.
func explicitGraded(block blocks.BlockMeta) bool {
	if block.ExplicitGraded == nil {
		return true
	}
	return *block.ExplicitGraded
}

// weightedScore rescales a raw score to the block's configured weight.
// rawPossible must be defined; a nil value is a programming error in the
// caller. When weight is unset or rawPossible is zero the raw pair is
// returned unchanged since rescaling is impossible or meaningless.
func weightedScore(rawEarned float64, rawPossible, weight *float64) (float64, float64) {
	if rawPossible == nil {
		panic("scores: rawPossible must be defined for weighting")
	}
	if weight == nil || *rawPossible == 0 {
		return rawEarned, *rawPossible
	}
	return rawEarned * *weight / *rawPossible, *weight
}

// Float is a convenience for building optional score fields.
func Float(v float64) *float64 { return &v }

// Bool is a convenience for building optional graded annotations.
func Bool(v bool) *bool { return &v }
