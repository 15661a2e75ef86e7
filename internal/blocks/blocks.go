package blocks

import "strings"

// UsageKey identifies one block within a course run, e.g.
// "block-v1:MEx+CS101+2026+type@problem+block@intro_quiz_1".
type UsageKey string

func (k UsageKey) String() string { return string(k) }

// URLName is the trailing block id of the key, used for display/reporting.
func (k UsageKey) URLName() string {
	s := string(k)
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// BlockMeta is the per-block annotation set supplied by the content tree.
// MaxScore, Weight and ExplicitGraded are nil when the authoring side left
// them unset; the distinction between "unset" and "zero" matters for score
// resolution, so they stay pointers.
type BlockMeta struct {
	Location       UsageKey `json:"location"`
	Type           string   `json:"type"`
	DisplayName    string   `json:"display_name"`
	MaxScore       *float64 `json:"max_score,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	ExplicitGraded *bool    `json:"graded,omitempty"`
}

// CourseTree is the traversal view of one course run: block metadata plus the
// parent->children relation, in document order. It is built once per request
// by the content-tree collaborator and read-only afterwards.
type CourseTree struct {
	CourseID string
	Root     UsageKey

	meta     map[UsageKey]BlockMeta
	children map[UsageKey][]UsageKey
}

func NewCourseTree(courseID string, root BlockMeta) *CourseTree {
	t := &CourseTree{
		CourseID: courseID,
		Root:     root.Location,
		meta:     map[UsageKey]BlockMeta{root.Location: root},
		children: map[UsageKey][]UsageKey{},
	}
	return t
}

// Add attaches m as the next child of parent. Parents must be added before
// their children.
func (t *CourseTree) Add(parent UsageKey, m BlockMeta) {
	t.meta[m.Location] = m
	t.children[parent] = append(t.children[parent], m.Location)
}

func (t *CourseTree) Get(k UsageKey) (BlockMeta, bool) {
	m, ok := t.meta[k]
	return m, ok
}

func (t *CourseTree) Children(k UsageKey) []UsageKey {
	return t.children[k]
}

// Len reports the number of blocks in the tree.
func (t *CourseTree) Len() int { return len(t.meta) }
