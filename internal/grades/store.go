package grades

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mind-engage/coursegrades/internal/blocks"
)

// ErrNotFound means no grade row exists for the requested key. It is a
// normal outcome on the read path, not a store failure.
var ErrNotFound = errors.New("grade not found")

// StoreError marks a durable-store failure. It is the only error category
// the grade factories swallow and fall back from; anything else propagates
// so programming errors are not masked as persistence hiccups.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("grade store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error { return &StoreError{Op: op, Err: err} }

// GradeStore is the durable grade persistence contract. Reads return the
// latest snapshot for the key or ErrNotFound; writes append a new snapshot.
// All other failures are reported as *StoreError.
type GradeStore interface {
	ReadSubsectionGrade(ctx context.Context, userID string, usageKey blocks.UsageKey) (PersistedSubsectionGrade, error)
	CreateSubsectionGrade(ctx context.Context, g PersistedSubsectionGrade) (PersistedSubsectionGrade, error)
	BulkCreateSubsectionGrades(ctx context.Context, gs []PersistedSubsectionGrade) error

	ReadCourseGrade(ctx context.Context, userID, courseID string) (PersistedCourseGrade, error)
	CreateCourseGrade(ctx context.Context, g PersistedCourseGrade) (PersistedCourseGrade, error)
}

// MemoryStore is an in-memory GradeStore for tests and single-process use.
type MemoryStore struct {
	mu          sync.RWMutex
	subsections map[string][]PersistedSubsectionGrade // userID|usageKey -> snapshots in insert order
	courses     map[string][]PersistedCourseGrade     // userID|courseID -> snapshots in insert order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subsections: map[string][]PersistedSubsectionGrade{},
		courses:     map[string][]PersistedCourseGrade{},
	}
}

func memKey(a, b string) string { return a + "|" + b }

func (m *MemoryStore) ReadSubsectionGrade(_ context.Context, userID string, usageKey blocks.UsageKey) (PersistedSubsectionGrade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.subsections[memKey(userID, usageKey.String())]
	if len(rows) == 0 {
		return PersistedSubsectionGrade{}, ErrNotFound
	}
	sorted := append([]PersistedSubsectionGrade(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt > sorted[j].CreatedAt })
	return sorted[0], nil
}

func (m *MemoryStore) CreateSubsectionGrade(_ context.Context, g PersistedSubsectionGrade) (PersistedSubsectionGrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(g.UserID, g.UsageKey.String())
	m.subsections[k] = append(m.subsections[k], g)
	return g, nil
}

func (m *MemoryStore) BulkCreateSubsectionGrades(ctx context.Context, gs []PersistedSubsectionGrade) error {
	for _, g := range gs {
		if _, err := m.CreateSubsectionGrade(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) ReadCourseGrade(_ context.Context, userID, courseID string) (PersistedCourseGrade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.courses[memKey(userID, courseID)]
	if len(rows) == 0 {
		return PersistedCourseGrade{}, ErrNotFound
	}
	sorted := append([]PersistedCourseGrade(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt > sorted[j].CreatedAt })
	return sorted[0], nil
}

func (m *MemoryStore) CreateCourseGrade(_ context.Context, g PersistedCourseGrade) (PersistedCourseGrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(g.UserID, g.CourseID)
	m.courses[k] = append(m.courses[k], g)
	return g, nil
}
