package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/coursegrades/internal/blocks"
	"github.com/mind-engage/coursegrades/internal/courseware"
	"github.com/mind-engage/coursegrades/internal/grades"
	"github.com/mind-engage/coursegrades/internal/scores"
	syncx "github.com/mind-engage/coursegrades/internal/sync"
)

// CourseProvider resolves a course id to its loaded manifest.
type CourseProvider interface {
	Course(ctx context.Context, courseID string) (*courseware.Course, error)
}

// Env bundles the collaborators the grade handlers need.
type Env struct {
	Store   *grades.SQLStore
	Courses CourseProvider
	Events  *syncx.EventRepo

	// Platform-level persistence gate; the per-course half comes from each
	// course's manifest setting.
	PersistEnabled    bool
	PersistAllCourses bool
	PersistCourses    map[string]bool
}

func (e *Env) flagsFor(course *courseware.Course) grades.PersistenceFlags {
	return grades.StaticFlags{
		Global:     e.PersistEnabled,
		AllCourses: e.PersistAllCourses,
		Courses: map[string]bool{
			course.ID: course.CreatePersistentGrades || e.PersistCourses[course.ID],
		},
	}
}

func (e *Env) courseFactory(ctx context.Context, courseID, userID string) (*grades.CourseGradeFactory, error) {
	course, err := e.Courses.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	subs, attempts, err := e.scoreInputs(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	f := grades.NewCourseGradeFactory(userID, course.Tree, e.Store, e.flagsFor(course), subs, attempts)
	if len(course.GradeCutoffs) > 0 {
		f.Cutoffs = course.GradeCutoffs
	}
	return f, nil
}

func (e *Env) scoreInputs(ctx context.Context, userID, courseID string) (scores.SubmissionScores, scores.AttemptScores, error) {
	subs, err := e.Store.SubmissionScores(ctx, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	attempts, err := e.Store.AttemptScores(ctx, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	return subs, attempts, nil
}

// GET /courses/{courseID}/users/{userID}/grade
func CourseGradeHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		userID := chi.URLParam(r, "userID")
		f, err := env.courseFactory(r.Context(), courseID, userID)
		if err != nil {
			http.Error(w, "course grade: "+err.Error(), http.StatusInternalServerError)
			return
		}
		grade, err := f.Create(r.Context())
		if err != nil {
			http.Error(w, "course grade: "+err.Error(), http.StatusInternalServerError)
			return
		}
		env.appendEvent(r.Context(), "CourseGradeComputed", userID+"|"+courseID, grade)
		_ = json.NewEncoder(w).Encode(grade)
	}
}

// GET /courses/{courseID}/users/{userID}/subsections/{usageKey}/grade
func SubsectionGradeHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		userID := chi.URLParam(r, "userID")
		usageKey := strings.TrimSpace(chi.URLParam(r, "usageKey"))
		if usageKey == "" {
			http.Error(w, "usageKey required", http.StatusBadRequest)
			return
		}
		course, err := env.Courses.Course(r.Context(), courseID)
		if err != nil {
			http.Error(w, "subsection grade: "+err.Error(), http.StatusInternalServerError)
			return
		}
		subs, attempts, err := env.scoreInputs(r.Context(), userID, courseID)
		if err != nil {
			http.Error(w, "subsection grade: "+err.Error(), http.StatusInternalServerError)
			return
		}
		f := grades.NewSubsectionGradeFactory(userID, course.Tree, env.Store, env.flagsFor(course), subs, attempts)
		grade, err := f.Create(r.Context(), blocks.UsageKey(usageKey))
		if err != nil {
			http.Error(w, "subsection grade: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(grade)
	}
}

// POST /courses/{courseID}/users/{userID}/grades/recompute
// Recomputes every subsection live (skipping saved snapshots) and persists
// the fresh results. Instructor/admin only.
func RecomputeGradesHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		userID := chi.URLParam(r, "userID")
		course, err := env.Courses.Course(r.Context(), courseID)
		if err != nil {
			http.Error(w, "recompute: "+err.Error(), http.StatusInternalServerError)
			return
		}
		subs, attempts, err := env.scoreInputs(r.Context(), userID, courseID)
		if err != nil {
			http.Error(w, "recompute: "+err.Error(), http.StatusInternalServerError)
			return
		}
		f := grades.NewSubsectionGradeFactory(userID, course.Tree, env.Store, env.flagsFor(course), subs, attempts)
		out, err := f.BulkCreateUnsaved(r.Context())
		if err != nil {
			http.Error(w, "recompute: "+err.Error(), http.StatusInternalServerError)
			return
		}
		env.appendEvent(r.Context(), "GradesRecomputed", userID+"|"+courseID, map[string]int{"subsections": len(out)})
		_ = json.NewEncoder(w).Encode(out)
	}
}

// appendEvent records an audit event; the log is advisory, so failures only
// warn.
func (e *Env) appendEvent(ctx context.Context, typ, key string, payload interface{}) {
	if e.Events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := e.Events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: string(data)}); err != nil {
		log.Printf("grade event append failed: %v", err)
	}
}
