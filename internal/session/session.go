// Package session mints a per-run correlation id for log lines. It is
// purely a logging aid: spec.md's job identity is the OS process-group
// id (see internal/jobtable), and this id never enters the job table
// or any job-control decision.
//
// Grounded on the teacher's pkg/job/id.go typeid usage pattern,
// repurposed from job identity to session identity (DESIGN.md).
package session

import "go.jetify.com/typeid"

// Prefix names the typeid prefix for a shell session: ids render as
// "sh_<suffix>".
type Prefix struct{}

func (Prefix) Prefix() string { return "sh" }

// ID is a session's typeid.
type ID struct {
	typeid.TypeID[Prefix]
}

// New mints a fresh session id.
func New() (ID, error) {
	return typeid.New[ID]()
}
