package grades

import (
	"github.com/mind-engage/coursegrades/internal/blocks"
	"github.com/mind-engage/coursegrades/internal/scores"
)

// EarnedPossible is a running (earned, possible) sum over weighted scores.
type EarnedPossible struct {
	Earned   float64 `json:"earned"`
	Possible float64 `json:"possible"`
}

func (t *EarnedPossible) add(earned, possible float64) {
	t.Earned += earned
	t.Possible += possible
}

// SubsectionGrade is one learner's grade for one subsection: the resolved
// score of every scorable descendant plus two aggregates. GradedTotal counts
// only blocks whose resolved Graded flag is true; AllTotal counts every
// block. Immutable once built.
type SubsectionGrade struct {
	Location      blocks.UsageKey       `json:"location"`
	CourseID      string                `json:"course_id"`
	URLName       string                `json:"url_name"`
	DisplayName   string                `json:"display_name"`
	AllTotal      EarnedPossible        `json:"all_total"`
	GradedTotal   EarnedPossible        `json:"graded_total"`
	ProblemScores []scores.ProblemScore `json:"problem_scores"`
}

// BlockRecord is the per-block slice of a persisted subsection grade: the
// grading parameters the learner was actually graded on.
type BlockRecord struct {
	Location    blocks.UsageKey `json:"location"`
	Weight      *float64        `json:"weight"`
	RawPossible float64         `json:"raw_possible"`
	Graded      bool            `json:"graded"`
}

// PersistedSubsectionGrade is one durable snapshot of a computed subsection
// grade. Snapshots are never mutated: each save is a new row and the latest
// row wins on read.
type PersistedSubsectionGrade struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	CourseID       string          `json:"course_id"`
	UsageKey       blocks.UsageKey `json:"usage_key"`
	EarnedAll      float64         `json:"earned_all"`
	PossibleAll    float64         `json:"possible_all"`
	EarnedGraded   float64         `json:"earned_graded"`
	PossibleGraded float64         `json:"possible_graded"`
	BlockRecords   []BlockRecord   `json:"block_records"`
	CreatedAt      int64           `json:"created_at"`
}

// PersistedCourseGrade is the durable course-level aggregate, same
// snapshot-and-latest-wins lifecycle as subsection grades.
type PersistedCourseGrade struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	CourseID    string  `json:"course_id"`
	Percent     float64 `json:"percent"`
	LetterGrade string  `json:"letter_grade"`
	CreatedAt   int64   `json:"created_at"`
}

// ChapterGrade groups a chapter's subsection grades for reporting.
type ChapterGrade struct {
	Location         blocks.UsageKey    `json:"location"`
	DisplayName      string             `json:"display_name"`
	SubsectionGrades []*SubsectionGrade `json:"subsection_grades"`
}

// CourseGrade composes subsection grades into the course-level result.
type CourseGrade struct {
	CourseID      string         `json:"course_id"`
	UserID        string         `json:"user_id"`
	ChapterGrades []ChapterGrade `json:"chapter_grades,omitempty"`
	AllTotal      EarnedPossible `json:"all_total"`
	GradedTotal   EarnedPossible `json:"graded_total"`
	Percent       float64        `json:"percent"`
	LetterGrade   string         `json:"letter_grade"`
}
