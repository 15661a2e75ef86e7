package grades

// PersistenceFlags gates durable grade writes. Enabled must be true for a
// course before any persisted grade is read or written; grades are always
// computed and returned regardless.
type PersistenceFlags interface {
	Enabled(courseID string) bool
}

// StaticFlags is the two-level gate: a platform-wide kill switch plus
// per-course opt-in (either the all-courses override or the course's own
// advanced setting). Both levels must pass.
type StaticFlags struct {
	Global     bool
	AllCourses bool
	Courses    map[string]bool
}

func (f StaticFlags) Enabled(courseID string) bool {
	if !f.Global {
		return false
	}
	if f.AllCourses {
		return true
	}
	return f.Courses[courseID]
}

// FlagsFunc adapts a function to the PersistenceFlags interface.
type FlagsFunc func(courseID string) bool

func (f FlagsFunc) Enabled(courseID string) bool { return f(courseID) }
