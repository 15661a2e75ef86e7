// Package courseware loads course manifest exports into the traversal view
// the grading layer consumes. A manifest is the content-tree side's JSON
// export of one course run: the block hierarchy with grading annotations,
// grade cutoffs, and the course's persistent-grades advanced setting.
package courseware

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mind-engage/coursegrades/internal/blocks"
	"github.com/mind-engage/coursegrades/internal/storage"
)

type Manifest struct {
	CourseID               string             `json:"course_id"`
	Root                   BlockNode          `json:"root"`
	GradeCutoffs           map[string]float64 `json:"grade_cutoffs,omitempty"`
	CreatePersistentGrades bool               `json:"create_persistent_grades,omitempty"`
}

type BlockNode struct {
	Location    string      `json:"location"`
	Type        string      `json:"type"`
	DisplayName string      `json:"display_name,omitempty"`
	MaxScore    *float64    `json:"max_score,omitempty"`
	Weight      *float64    `json:"weight,omitempty"`
	Graded      *bool       `json:"graded,omitempty"`
	Children    []BlockNode `json:"children,omitempty"`
}

// Course is a loaded manifest: the traversal tree plus course-level grading
// settings.
type Course struct {
	ID                     string
	Tree                   *blocks.CourseTree
	GradeCutoffs           map[string]float64
	CreatePersistentGrades bool
}

func Load(r io.Reader) (*Course, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.CourseID == "" {
		return nil, fmt.Errorf("manifest missing course_id")
	}
	if m.Root.Location == "" {
		return nil, fmt.Errorf("manifest %s missing root block", m.CourseID)
	}

	tree := blocks.NewCourseTree(m.CourseID, metaOf(m.Root))
	var attach func(parent blocks.UsageKey, nodes []BlockNode)
	attach = func(parent blocks.UsageKey, nodes []BlockNode) {
		for _, n := range nodes {
			meta := metaOf(n)
			tree.Add(parent, meta)
			attach(meta.Location, n.Children)
		}
	}
	attach(blocks.UsageKey(m.Root.Location), m.Root.Children)

	return &Course{
		ID:                     m.CourseID,
		Tree:                   tree,
		GradeCutoffs:           m.GradeCutoffs,
		CreatePersistentGrades: m.CreatePersistentGrades,
	}, nil
}

// LoadFromStore reads the manifest blob "<courseID>.json".
func LoadFromStore(store storage.BlobStore, courseID string) (*Course, error) {
	rc, err := store.Get(courseID + ".json")
	if err != nil {
		return nil, fmt.Errorf("manifest for %s: %w", courseID, err)
	}
	defer rc.Close()
	return Load(rc)
}

func metaOf(n BlockNode) blocks.BlockMeta {
	return blocks.BlockMeta{
		Location:       blocks.UsageKey(n.Location),
		Type:           n.Type,
		DisplayName:    n.DisplayName,
		MaxScore:       n.MaxScore,
		Weight:         n.Weight,
		ExplicitGraded: n.Graded,
	}
}
