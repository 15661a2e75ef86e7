package blocks

import "sync"

// Capability declares what a block type can do with respect to grading.
type Capability struct {
	HasScore    bool // the block itself can carry a score
	HasChildren bool // the block can contain children that might carry scores
}

// Registry maps block type -> grading capabilities. It replaces a dynamic
// scan over block implementations with a declarative table supplied by the
// content-tree side.
type Registry map[string]Capability

// DefaultRegistry covers the standard course block types. Container types
// can never score themselves but must be descended into; leaf media types
// (video, html, discussion) can never impact a grade.
func DefaultRegistry() Registry {
	return Registry{
		"course":          {HasChildren: true},
		"chapter":         {HasChildren: true},
		"sequential":      {HasChildren: true},
		"vertical":        {HasChildren: true},
		"library_content": {HasChildren: true},
		"split_test":      {HasChildren: true},
		"conditional":     {HasChildren: true},
		"randomize":       {HasChildren: true},

		"problem":          {HasScore: true},
		"openassessment":   {HasScore: true},
		"lti_consumer":     {HasScore: true},
		"drag-and-drop-v2": {HasScore: true},
		"done":             {HasScore: true},

		"video":      {},
		"html":       {},
		"discussion": {},
	}
}

// Classifier answers whether a block type could ever impact grading. The
// possibly-scored set is computed once from the registry at construction and
// immutable afterwards, so it is safe for concurrent readers.
type Classifier struct {
	reg    Registry
	scored map[string]struct{}
}

func NewClassifier(reg Registry) *Classifier {
	c := &Classifier{reg: reg, scored: make(map[string]struct{}, len(reg))}
	for typ, cap := range reg {
		if cap.HasScore || cap.HasChildren {
			c.scored[typ] = struct{}{}
		}
	}
	return c
}

// PossiblyScored reports whether blocks of this type can carry a score or
// contain descendants that do. Traversal uses it to prune whole subtrees.
func (c *Classifier) PossiblyScored(blockType string) bool {
	_, ok := c.scored[blockType]
	return ok
}

// Scorable reports whether blocks of this type carry a score themselves.
func (c *Classifier) Scorable(blockType string) bool {
	return c.reg[blockType].HasScore
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the process-wide classifier over DefaultRegistry. The
// first caller builds it; concurrent first calls are harmless since the set
// is a pure function of the static registry.
func Default() *Classifier {
	defaultOnce.Do(func() {
		defaultClassifier = NewClassifier(DefaultRegistry())
	})
	return defaultClassifier
}
