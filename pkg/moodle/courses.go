package moodle

import (
	"moodlefetch/pkg/htmlutil"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

const COURSES_PATH = "index.php"

type Course struct {
	Id   int64
	Name string
	Url  *url.URL
}

func parseIdFromUrl(link *url.URL, key string) (int64, error) {
	return strconv.ParseInt(link.Query().Get(key), 10, 64)
}

// CoursesQuery reads the course list on the front page.
type CoursesQuery struct{}

func (CoursesQuery) Path() string {
	return COURSES_PATH
}

func (CoursesQuery) Parse(doc *goquery.Document) ([]Course, error) {
	anchors := htmlutil.GetAnchors(doc.Url, doc.Find("ul.unlist a"))

	courses := []Course{}
	for _, a := range anchors {
		id, err := parseIdFromUrl(a.Url, "id")
		if err != nil {
			continue
		}
		courses = append(courses, Course{
			Id:   id,
			Name: a.Name,
			Url:  a.Url,
		})
	}
	return courses, nil
}
