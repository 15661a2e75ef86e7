package courseware_test

import (
	"strings"
	"testing"

	"github.com/mind-engage/coursegrades/internal/courseware"
)

const sampleManifest = `{
  "course_id": "course-v1:MEx+CS101+2026",
  "grade_cutoffs": {"A": 0.85, "B": 0.6},
  "create_persistent_grades": true,
  "root": {
    "location": "block@course",
    "type": "course",
    "children": [
      {
        "location": "block@week_1",
        "type": "chapter",
        "display_name": "Week 1",
        "children": [
          {
            "location": "block@homework_1",
            "type": "sequential",
            "display_name": "Homework 1",
            "children": [
              {"location": "block@p1", "type": "problem", "max_score": 4, "weight": 2, "graded": true},
              {"location": "block@v1", "type": "video"}
            ]
          }
        ]
      }
    ]
  }
}`

func TestLoad(t *testing.T) {
	course, err := courseware.Load(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if course.ID != "course-v1:MEx+CS101+2026" {
		t.Fatalf("course id = %q", course.ID)
	}
	if !course.CreatePersistentGrades {
		t.Fatalf("create_persistent_grades not carried")
	}
	if course.GradeCutoffs["A"] != 0.85 {
		t.Fatalf("cutoffs = %v", course.GradeCutoffs)
	}

	if course.Tree.Len() != 5 {
		t.Fatalf("tree has %d blocks; want 5", course.Tree.Len())
	}
	p1, ok := course.Tree.Get("block@p1")
	if !ok {
		t.Fatalf("p1 missing from tree")
	}
	if p1.MaxScore == nil || *p1.MaxScore != 4 {
		t.Fatalf("max_score = %v", p1.MaxScore)
	}
	if p1.Weight == nil || *p1.Weight != 2 {
		t.Fatalf("weight = %v", p1.Weight)
	}
	if p1.ExplicitGraded == nil || !*p1.ExplicitGraded {
		t.Fatalf("graded = %v", p1.ExplicitGraded)
	}
	v1, _ := course.Tree.Get("block@v1")
	if v1.MaxScore != nil || v1.ExplicitGraded != nil {
		t.Fatalf("unset annotations must stay nil: %+v", v1)
	}

	kids := course.Tree.Children("block@homework_1")
	if len(kids) != 2 || kids[0] != "block@p1" {
		t.Fatalf("children out of order: %v", kids)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":          `{`,
		"missing course_id": `{"root": {"location": "r", "type": "course"}}`,
		"missing root":      `{"course_id": "c1", "root": {}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := courseware.Load(strings.NewReader(body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
