package grades

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/coursegrades/internal/blocks"
	"github.com/mind-engage/coursegrades/internal/scores"
)

// SQLStore implements GradeStore over database/sql (sqlite or postgres) and
// doubles as the read model for the external submission and attempt score
// stores. Grade-store failures are wrapped in *StoreError so the factories
// can tell them apart from programming errors; provider failures are plain
// errors since those stores are inputs, not the fallback-protected sink.
type SQLStore struct{ DB *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{DB: db} }

func (s *SQLStore) ReadSubsectionGrade(ctx context.Context, userID string, usageKey blocks.UsageKey) (PersistedSubsectionGrade, error) {
	var (
		g       PersistedSubsectionGrade
		recJSON string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, course_id, usage_key,
		       earned_all, possible_all, earned_graded, possible_graded,
		       block_records_json, created_at
		FROM subsection_grades
		WHERE user_id=$1 AND usage_key=$2
		ORDER BY created_at DESC LIMIT 1`, userID, usageKey.String()).
		Scan(&g.ID, &g.UserID, &g.CourseID, &g.UsageKey,
			&g.EarnedAll, &g.PossibleAll, &g.EarnedGraded, &g.PossibleGraded,
			&recJSON, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PersistedSubsectionGrade{}, ErrNotFound
	}
	if err != nil {
		return PersistedSubsectionGrade{}, storeErr("read subsection grade", err)
	}
	if err := json.Unmarshal([]byte(recJSON), &g.BlockRecords); err != nil {
		return PersistedSubsectionGrade{}, storeErr("decode block records", err)
	}
	return g, nil
}

func (s *SQLStore) CreateSubsectionGrade(ctx context.Context, g PersistedSubsectionGrade) (PersistedSubsectionGrade, error) {
	if err := s.insertSubsectionGrade(ctx, s.DB, g); err != nil {
		return PersistedSubsectionGrade{}, err
	}
	return g, nil
}

func (s *SQLStore) BulkCreateSubsectionGrades(ctx context.Context, gs []PersistedSubsectionGrade) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin bulk create", err)
	}
	for _, g := range gs {
		if err := s.insertSubsectionGrade(ctx, tx, g); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit bulk create", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) insertSubsectionGrade(ctx context.Context, db execer, g PersistedSubsectionGrade) error {
	recJSON, err := json.Marshal(g.BlockRecords)
	if err != nil {
		return storeErr("encode block records", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO subsection_grades
		  (id, user_id, course_id, usage_key,
		   earned_all, possible_all, earned_graded, possible_graded,
		   block_records_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		g.ID, g.UserID, g.CourseID, g.UsageKey.String(),
		g.EarnedAll, g.PossibleAll, g.EarnedGraded, g.PossibleGraded,
		string(recJSON), g.CreatedAt)
	if err != nil {
		return storeErr("create subsection grade", err)
	}
	return nil
}

func (s *SQLStore) ReadCourseGrade(ctx context.Context, userID, courseID string) (PersistedCourseGrade, error) {
	var g PersistedCourseGrade
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, course_id, percent, letter_grade, created_at
		FROM course_grades
		WHERE user_id=$1 AND course_id=$2
		ORDER BY created_at DESC LIMIT 1`, userID, courseID).
		Scan(&g.ID, &g.UserID, &g.CourseID, &g.Percent, &g.LetterGrade, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PersistedCourseGrade{}, ErrNotFound
	}
	if err != nil {
		return PersistedCourseGrade{}, storeErr("read course grade", err)
	}
	return g, nil
}

func (s *SQLStore) CreateCourseGrade(ctx context.Context, g PersistedCourseGrade) (PersistedCourseGrade, error) {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO course_grades (id, user_id, course_id, percent, letter_grade, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		g.ID, g.UserID, g.CourseID, g.Percent, g.LetterGrade, g.CreatedAt)
	if err != nil {
		return PersistedCourseGrade{}, storeErr("create course grade", err)
	}
	return g, nil
}

// SubmissionScores loads the submissions-service read model for one
// (user, course), already scoped and ready for resolution.
func (s *SQLStore) SubmissionScores(ctx context.Context, userID, courseID string) (scores.SubmissionScores, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT usage_key, weighted_earned, weighted_possible
		FROM submission_scores
		WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("submission scores: %w", err)
	}
	defer rows.Close()

	out := scores.SubmissionScores{}
	for rows.Next() {
		var (
			key  string
			pair scores.WeightedPair
		)
		if err := rows.Scan(&key, &pair.Earned, &pair.Possible); err != nil {
			return nil, fmt.Errorf("submission scores: %w", err)
		}
		out[key] = pair
	}
	return out, rows.Err()
}

// AttemptScores loads the historical per-attempt read model for one
// (user, course). Correct and total stay nullable: "total is nil" is how
// resolution decides the row is absent.
func (s *SQLStore) AttemptScores(ctx context.Context, userID, courseID string) (scores.AttemptScores, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT usage_key, correct, total
		FROM attempt_scores
		WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("attempt scores: %w", err)
	}
	defer rows.Close()

	out := scores.AttemptScores{}
	for rows.Next() {
		var (
			key            string
			correct, total sql.NullFloat64
		)
		if err := rows.Scan(&key, &correct, &total); err != nil {
			return nil, fmt.Errorf("attempt scores: %w", err)
		}
		rec := scores.AttemptScore{}
		if correct.Valid {
			v := correct.Float64
			rec.Correct = &v
		}
		if total.Valid {
			v := total.Float64
			rec.Total = &v
		}
		out[blocks.UsageKey(key)] = rec
	}
	return out, rows.Err()
}
