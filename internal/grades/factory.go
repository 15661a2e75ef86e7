package grades

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mind-engage/coursegrades/internal/blocks"
	"github.com/mind-engage/coursegrades/internal/scores"
)

// PersistenceWarnPrefix starts every fallback warning so operators can alert
// on persistence degradation without grepping error detail.
const PersistenceWarnPrefix = "Persistent Grades: Persistence Error, falling back."

// SubsectionGradeFactory retrieves subsection grades for one user: persisted
// snapshot when available, live computation otherwise, saving fresh results.
// A store failure on either path is logged and absorbed — persistence is an
// optimization and audit trail, never a correctness dependency, so its
// unavailability must not stop a learner from seeing their grade.
type SubsectionGradeFactory struct {
	UserID      string
	Tree        *blocks.CourseTree
	Classifier  *blocks.Classifier
	Store       GradeStore
	Flags       PersistenceFlags
	Submissions scores.SubmissionScores
	Attempts    scores.AttemptScores

	Now   func() time.Time
	Warnf func(format string, args ...interface{})
}

func NewSubsectionGradeFactory(
	userID string,
	tree *blocks.CourseTree,
	store GradeStore,
	flags PersistenceFlags,
	subs scores.SubmissionScores,
	attempts scores.AttemptScores,
) *SubsectionGradeFactory {
	return &SubsectionGradeFactory{
		UserID:      userID,
		Tree:        tree,
		Classifier:  blocks.Default(),
		Store:       store,
		Flags:       flags,
		Submissions: subs,
		Attempts:    attempts,
		Now:         time.Now,
		Warnf:       log.Printf,
	}
}

// Create returns the user's grade for subsection. When persistence is
// enabled it first tries the saved snapshot; on a miss it computes live and
// saves the result as a new snapshot.
func (f *SubsectionGradeFactory) Create(ctx context.Context, subsection blocks.UsageKey) (*SubsectionGrade, error) {
	enabled := f.Flags.Enabled(f.Tree.CourseID)

	if enabled {
		model, err := f.Store.ReadSubsectionGrade(ctx, f.UserID, subsection)
		switch {
		case err == nil:
			return subsectionFromModel(f.Tree, model, f.Submissions, f.Attempts)
		case errors.Is(err, ErrNotFound):
			// fresh computation below
		default:
			if ferr := f.fallback(err); ferr != nil {
				return nil, ferr
			}
		}
	}

	grade, err := f.compute(subsection)
	if err != nil {
		return nil, err
	}

	if enabled {
		model := grade.toModel(f.UserID, f.Now().Unix())
		model.ID = uuid.NewString()
		if _, err := f.Store.CreateSubsectionGrade(ctx, model); err != nil {
			if ferr := f.fallback(err); ferr != nil {
				return nil, ferr
			}
		}
	}
	return grade, nil
}

// BulkCreateUnsaved computes every subsection grade of the course live,
// skipping the per-subsection read path, then batch-persists the snapshots.
func (f *SubsectionGradeFactory) BulkCreateUnsaved(ctx context.Context) ([]*SubsectionGrade, error) {
	var (
		out    []*SubsectionGrade
		models []PersistedSubsectionGrade
	)
	now := f.Now().Unix()
	for _, key := range subsectionKeys(f.Tree) {
		grade, err := f.compute(key)
		if err != nil {
			return nil, err
		}
		out = append(out, grade)
		model := grade.toModel(f.UserID, now)
		model.ID = uuid.NewString()
		models = append(models, model)
	}

	if f.Flags.Enabled(f.Tree.CourseID) && len(models) > 0 {
		if err := f.Store.BulkCreateSubsectionGrades(ctx, models); err != nil {
			if ferr := f.fallback(err); ferr != nil {
				return nil, ferr
			}
		}
	}
	return out, nil
}

func (f *SubsectionGradeFactory) compute(subsection blocks.UsageKey) (*SubsectionGrade, error) {
	return computeSubsection(f.Tree, f.classifier(), subsection, f.Submissions, f.Attempts, nil)
}

// fallback absorbs durable-store failures with a single warning. Any other
// error is handed back unchanged: a broad catch here would mask programming
// errors as persistence hiccups.
func (f *SubsectionGradeFactory) fallback(err error) error {
	var se *StoreError
	if !errors.As(err, &se) {
		return err
	}
	f.warnf(PersistenceWarnPrefix+" %v", err)
	return nil
}

func (f *SubsectionGradeFactory) classifier() *blocks.Classifier {
	if f.Classifier != nil {
		return f.Classifier
	}
	return blocks.Default()
}

func (f *SubsectionGradeFactory) warnf(format string, args ...interface{}) {
	if f.Warnf != nil {
		f.Warnf(format, args...)
		return
	}
	log.Printf(format, args...)
}
