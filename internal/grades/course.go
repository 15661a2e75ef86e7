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

// DefaultGradeCutoffs is used when a course declares none.
var DefaultGradeCutoffs = map[string]float64{
	"A": 0.9,
	"B": 0.8,
	"C": 0.7,
}

// CourseGradeFactory composes subsection grades into one course grade.
// Persistence of the course aggregate rides the same two-level gate as
// subsection grades and degrades the same way.
type CourseGradeFactory struct {
	UserID      string
	Tree        *blocks.CourseTree
	Classifier  *blocks.Classifier
	Store       GradeStore
	Flags       PersistenceFlags
	Submissions scores.SubmissionScores
	Attempts    scores.AttemptScores
	Cutoffs     map[string]float64

	Now   func() time.Time
	Warnf func(format string, args ...interface{})
}

func NewCourseGradeFactory(
	userID string,
	tree *blocks.CourseTree,
	store GradeStore,
	flags PersistenceFlags,
	subs scores.SubmissionScores,
	attempts scores.AttemptScores,
) *CourseGradeFactory {
	return &CourseGradeFactory{
		UserID:      userID,
		Tree:        tree,
		Classifier:  blocks.Default(),
		Store:       store,
		Flags:       flags,
		Submissions: subs,
		Attempts:    attempts,
		Cutoffs:     DefaultGradeCutoffs,
		Now:         time.Now,
		Warnf:       log.Printf,
	}
}

// Create computes the course grade from every subsection, chapter by
// chapter, then persists the aggregate when both gates pass.
func (f *CourseGradeFactory) Create(ctx context.Context) (*CourseGrade, error) {
	sgf := f.subsectionFactory()

	cg := &CourseGrade{CourseID: f.Tree.CourseID, UserID: f.UserID}
	for _, chapterKey := range f.Tree.Children(f.Tree.Root) {
		chMeta, ok := f.Tree.Get(chapterKey)
		if !ok {
			continue
		}
		chapter := ChapterGrade{Location: chapterKey, DisplayName: chMeta.DisplayName}
		for _, subKey := range f.Tree.Children(chapterKey) {
			subMeta, ok := f.Tree.Get(subKey)
			if !ok || subMeta.Type != "sequential" {
				continue
			}
			grade, err := sgf.Create(ctx, subKey)
			if err != nil {
				return nil, err
			}
			chapter.SubsectionGrades = append(chapter.SubsectionGrades, grade)
			cg.AllTotal.add(grade.AllTotal.Earned, grade.AllTotal.Possible)
			cg.GradedTotal.add(grade.GradedTotal.Earned, grade.GradedTotal.Possible)
		}
		cg.ChapterGrades = append(cg.ChapterGrades, chapter)
	}

	if cg.GradedTotal.Possible > 0 {
		cg.Percent = cg.GradedTotal.Earned / cg.GradedTotal.Possible
	}
	cg.LetterGrade = letterFor(cg.Percent, f.cutoffs())

	if f.Flags.Enabled(f.Tree.CourseID) {
		model := PersistedCourseGrade{
			ID:          uuid.NewString(),
			UserID:      f.UserID,
			CourseID:    cg.CourseID,
			Percent:     cg.Percent,
			LetterGrade: cg.LetterGrade,
			CreatedAt:   f.Now().Unix(),
		}
		if _, err := f.Store.CreateCourseGrade(ctx, model); err != nil {
			if ferr := f.fallback(err); ferr != nil {
				return nil, ferr
			}
		}
	}
	return cg, nil
}

// GetOrCreate serves the persisted course aggregate when one exists. The
// rehydrated grade carries only the stored summary (percent, letter); callers
// needing the per-subsection breakdown use Create.
func (f *CourseGradeFactory) GetOrCreate(ctx context.Context) (*CourseGrade, error) {
	if f.Flags.Enabled(f.Tree.CourseID) {
		model, err := f.Store.ReadCourseGrade(ctx, f.UserID, f.Tree.CourseID)
		switch {
		case err == nil:
			return &CourseGrade{
				CourseID:    model.CourseID,
				UserID:      model.UserID,
				Percent:     model.Percent,
				LetterGrade: model.LetterGrade,
			}, nil
		case errors.Is(err, ErrNotFound):
		default:
			if ferr := f.fallback(err); ferr != nil {
				return nil, ferr
			}
		}
	}
	return f.Create(ctx)
}

func (f *CourseGradeFactory) subsectionFactory() *SubsectionGradeFactory {
	return &SubsectionGradeFactory{
		UserID:      f.UserID,
		Tree:        f.Tree,
		Classifier:  f.Classifier,
		Store:       f.Store,
		Flags:       f.Flags,
		Submissions: f.Submissions,
		Attempts:    f.Attempts,
		Now:         f.Now,
		Warnf:       f.Warnf,
	}
}

func (f *CourseGradeFactory) fallback(err error) error {
	var se *StoreError
	if !errors.As(err, &se) {
		return err
	}
	if f.Warnf != nil {
		f.Warnf(PersistenceWarnPrefix+" %v", err)
	} else {
		log.Printf(PersistenceWarnPrefix+" %v", err)
	}
	return nil
}

func (f *CourseGradeFactory) cutoffs() map[string]float64 {
	if len(f.Cutoffs) > 0 {
		return f.Cutoffs
	}
	return DefaultGradeCutoffs
}

// letterFor picks the letter with the highest cutoff at or below percent,
// or empty when the percent clears no cutoff.
func letterFor(percent float64, cutoffs map[string]float64) string {
	letter := ""
	best := -1.0
	for l, min := range cutoffs {
		if percent >= min && min > best {
			letter, best = l, min
		}
	}
	return letter
}
