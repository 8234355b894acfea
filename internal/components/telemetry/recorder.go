package telemetry

import (
	"strings"
	"sync"
)

type ReportKind int

const (
	REPORT_BROKEN ReportKind = iota
	REPORT_WARNING
	REPORT_DEBUG
	REPORT_COUNT
)

type Report struct {
	Kind ReportKind
	// Id is the report id, or the message for debug reports.
	Id     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is meant for tests
// that need to assert that something was (or was not) reported.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) push(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push(Report{Kind: REPORT_BROKEN, Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push(Report{Kind: REPORT_WARNING, Id: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push(Report{Kind: REPORT_DEBUG, Id: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push(Report{Kind: REPORT_COUNT, Id: id, Count: count})
}

// Reports returns a copy of everything recorded so far.
func (r *Recorder) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns all the reports of a kind whose id contains `substr`.
func (r *Recorder) Find(kind ReportKind, substr string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Kind == kind && strings.Contains(report.Id, substr) {
			out = append(out, report)
		}
	}
	return out
}
