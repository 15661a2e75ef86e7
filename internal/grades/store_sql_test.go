package grades_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mind-engage/coursegrades/internal/blocks"
	"github.com/mind-engage/coursegrades/internal/db"
	"github.com/mind-engage/coursegrades/internal/grades"
	"github.com/mind-engage/coursegrades/internal/scores"
)

func openTestStore(t *testing.T) *grades.SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return grades.NewSQLStore(dbh)
}

func TestSQLStore_SubsectionGradeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.ReadSubsectionGrade(ctx, "u1", seq1Key); !errors.Is(err, grades.ErrNotFound) {
		t.Fatalf("want ErrNotFound on empty table; got %v", err)
	}

	g := grades.PersistedSubsectionGrade{
		ID:             "snap-1",
		UserID:         "u1",
		CourseID:       courseID,
		UsageKey:       seq1Key,
		EarnedAll:      9,
		PossibleAll:    10,
		EarnedGraded:   3,
		PossibleGraded: 4,
		BlockRecords: []grades.BlockRecord{
			{Location: p1Key, RawPossible: 4, Graded: true},
			{Location: p2Key, Weight: scores.Float(2), RawPossible: 6, Graded: false},
		},
		CreatedAt: 100,
	}
	if _, err := store.CreateSubsectionGrade(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.ReadSubsectionGrade(ctx, "u1", seq1Key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != "snap-1" || got.EarnedAll != 9 || got.PossibleGraded != 4 {
		t.Fatalf("row mismatch: %+v", got)
	}
	if len(got.BlockRecords) != 2 {
		t.Fatalf("want 2 block records; got %d", len(got.BlockRecords))
	}
	if got.BlockRecords[1].Weight == nil || *got.BlockRecords[1].Weight != 2 {
		t.Fatalf("weight lost in round trip: %+v", got.BlockRecords[1])
	}
	if got.BlockRecords[0].Weight != nil {
		t.Fatalf("unset weight must stay nil: %+v", got.BlockRecords[0])
	}
}

func TestSQLStore_LatestSnapshotWins(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for i, created := range []int64{100, 300, 200} {
		g := grades.PersistedSubsectionGrade{
			ID: fmt.Sprintf("snap-%d", i), UserID: "u1", CourseID: courseID,
			UsageKey: seq1Key, EarnedAll: float64(i), CreatedAt: created,
			BlockRecords: []grades.BlockRecord{},
		}
		if _, err := store.CreateSubsectionGrade(ctx, g); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	got, err := store.ReadSubsectionGrade(ctx, "u1", seq1Key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != "snap-1" {
		t.Fatalf("want newest snapshot (created_at=300); got %s created_at=%d", got.ID, got.CreatedAt)
	}
}

func TestSQLStore_BulkCreate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	gs := []grades.PersistedSubsectionGrade{
		{ID: "a", UserID: "u1", CourseID: courseID, UsageKey: seq1Key, CreatedAt: 1, BlockRecords: []grades.BlockRecord{}},
		{ID: "b", UserID: "u1", CourseID: courseID, UsageKey: seq2Key, CreatedAt: 1, BlockRecords: []grades.BlockRecord{}},
	}
	if err := store.BulkCreateSubsectionGrades(ctx, gs); err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	for _, key := range []struct {
		usage blocks.UsageKey
		id    string
	}{{seq1Key, "a"}, {seq2Key, "b"}} {
		got, err := store.ReadSubsectionGrade(ctx, "u1", key.usage)
		if err != nil {
			t.Fatalf("read %s: %v", key.usage, err)
		}
		if got.ID != key.id {
			t.Fatalf("read %s: got id %s; want %s", key.usage, got.ID, key.id)
		}
	}
}

func TestSQLStore_CourseGradeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.ReadCourseGrade(ctx, "u1", courseID); !errors.Is(err, grades.ErrNotFound) {
		t.Fatalf("want ErrNotFound; got %v", err)
	}
	g := grades.PersistedCourseGrade{
		ID: "cg-1", UserID: "u1", CourseID: courseID,
		Percent: 0.85, LetterGrade: "B", CreatedAt: 100,
	}
	if _, err := store.CreateCourseGrade(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.ReadCourseGrade(ctx, "u1", courseID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Percent != 0.85 || got.LetterGrade != "B" {
		t.Fatalf("row mismatch: %+v", got)
	}
}

func TestSQLStore_ScoreProviders(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	mustExec(t, store, `INSERT INTO submission_scores
		(user_id, course_id, usage_key, weighted_earned, weighted_possible, updated_at)
		VALUES ('u1', $1, $2, 3, 5, 1)`, courseID, p1Key.String())
	mustExec(t, store, `INSERT INTO attempt_scores
		(user_id, course_id, usage_key, correct, total, updated_at)
		VALUES ('u1', $1, $2, 2, 4, 1)`, courseID, p2Key.String())
	mustExec(t, store, `INSERT INTO attempt_scores
		(user_id, course_id, usage_key, correct, total, updated_at)
		VALUES ('u1', $1, $2, NULL, NULL, 1)`, courseID, p3Key.String())

	subs, err := store.SubmissionScores(ctx, "u1", courseID)
	if err != nil {
		t.Fatalf("submission scores: %v", err)
	}
	if pair := subs[p1Key.String()]; pair != (scores.WeightedPair{Earned: 3, Possible: 5}) {
		t.Fatalf("submission pair = %+v", pair)
	}

	attempts, err := store.AttemptScores(ctx, "u1", courseID)
	if err != nil {
		t.Fatalf("attempt scores: %v", err)
	}
	rec := attempts[p2Key]
	if rec.Correct == nil || *rec.Correct != 2 || rec.Total == nil || *rec.Total != 4 {
		t.Fatalf("attempt record = %+v", rec)
	}
	if nullRec := attempts[p3Key]; nullRec.Correct != nil || nullRec.Total != nil {
		t.Fatalf("NULL columns must map to nil pointers: %+v", nullRec)
	}

	// Scoping: a different user sees nothing.
	other, err := store.SubmissionScores(ctx, "u2", courseID)
	if err != nil {
		t.Fatalf("submission scores u2: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("u2 must have no rows; got %v", other)
	}
}

func mustExec(t *testing.T, store *grades.SQLStore, query string, args ...any) {
	t.Helper()
	if _, err := store.DB.Exec(query, args...); err != nil {
		t.Fatalf("exec: %v", err)
	}
}
