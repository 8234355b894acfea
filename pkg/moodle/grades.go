package moodle

import (
	"bytes"
	"encoding/json"
	"moodlefetch/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// GRADE_NO_DATA replaces a blank or "-" grade.
const GRADE_NO_DATA = "no data"

const GRADES_PATH = "grade/report/overview/index.php"

type Grade struct {
	Course string `json:"course"`
	Grade  string `json:"grade"`
}

// Grades maps course names to displayed grades in document order. A course that
// appears twice keeps its first position and its last grade.
type Grades struct {
	entries []Grade
	index   map[string]int
}

func (g *Grades) set(course, grade string) {
	if g.index == nil {
		g.index = map[string]int{}
	}
	if i, exists := g.index[course]; exists {
		g.entries[i].Grade = grade
		return
	}
	g.index[course] = len(g.entries)
	g.entries = append(g.entries, Grade{Course: course, Grade: grade})
}

// NewGrades builds Grades from entries in order, with the same duplicate
// handling as a parsed report.
func NewGrades(entries []Grade) Grades {
	grades := Grades{index: map[string]int{}}
	for _, e := range entries {
		grades.set(e.Course, e.Grade)
	}
	return grades
}

func (g Grades) Len() int {
	return len(g.entries)
}

func (g Grades) Get(course string) (string, bool) {
	i, ok := g.index[course]
	if !ok {
		return "", false
	}
	return g.entries[i].Grade, true
}

func (g Grades) Entries() []Grade {
	out := make([]Grade, len(g.entries))
	copy(out, g.entries)
	return out
}

func (g Grades) Map() map[string]string {
	out := make(map[string]string, len(g.entries))
	for _, e := range g.entries {
		out[e.Course] = e.Grade
	}
	return out
}

// MarshalJSON writes a json object whose keys keep document order.
func (g Grades) MarshalJSON() ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte('{')
	for i, e := range g.entries {
		if i > 0 {
			out.WriteByte(',')
		}
		key, err := json.Marshal(e.Course)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Grade)
		if err != nil {
			return nil, err
		}
		out.Write(key)
		out.WriteByte(':')
		out.Write(value)
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// GradesQuery reads the overview grade report.
type GradesQuery struct{}

func (GradesQuery) Path() string {
	return GRADES_PATH
}

func (GradesQuery) Parse(doc *goquery.Document) (Grades, error) {
	table := doc.Find("#overview-grade")
	if table.Length() == 0 {
		return Grades{}, newError(
			KIND_PARSE,
			"grades table not found, either not logged in or the page structure changed",
			nil,
		)
	}

	grades := Grades{index: map[string]int{}}
	table.Find("tbody tr:not(.emptyrow)").Each(func(_ int, row *goquery.Selection) {
		course, ok := htmlutil.Text(row.Find("td.c0"))
		if !ok || course == "" {
			return
		}
		grade, _ := htmlutil.Text(row.Find("td.c1"))
		if grade == "" || grade == "-" {
			grade = GRADE_NO_DATA
		}
		grades.set(course, grade)
	})

	return grades, nil
}
