package telemetry

import (
	"strings"
	"sync"
)

// Report is one call made against a Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

const (
	KindBroken  = "broken"
	KindWarning = "warning"
	KindDebug   = "debug"
	KindCount   = "count"
)

// Recorder is an API that keeps every report in memory, it is meant for tests
// that assert on what a component reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(KindBroken, id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(KindWarning, id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(KindDebug, msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(KindCount, id, []any{count})
}

// Reports returns a copy of the reports of the given kind whose id ends with
// suffix, an empty suffix matches everything.
func (r *Recorder) Reports(kind, suffix string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Kind != kind {
			continue
		}
		if suffix != "" && !strings.HasSuffix(rep.ID, suffix) {
			continue
		}
		out = append(out, rep)
	}
	return out
}
