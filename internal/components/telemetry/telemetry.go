package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics so that components can be tested
// for the reports they make.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that broke in a way that should be addressed.
	//
	// The `id` names the broken **component**, not the line that failed.
	// ex. a failed navigation inside the session login flow is reported as
	// `session.login`, the detail goes into the wrapped error passed as a param.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) underscores for large components
	// 3) dashes for methods of a larger component
	//
	// ScopedAPI supplies the package level namespace so ids stay short.
	ReportBroken(id string, params ...any)

	// ReportWarning reports a scenario that was recovered from but may be subject
	// to investigation (a corrupted store file, a cohort filter that could not be
	// clicked).
	//
	// For what value to provide as `id` refer to ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports debug information that will be ignored in production.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current count of a specific event, counts are
	// points of data over time and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI attaches a namespace to every report of the inner API, kind of like
// creating a "sub" logger with a prefix.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
