package curriculum

import (
	"fmt"
	"strings"
)

// ControlType is the assessment method of a discipline in a term.
type ControlType int

const (
	ControlNone ControlType = iota
	ControlExam
	ControlPass
)

// labels used by the portal and by the persisted store
const (
	labelExam = "Экзамен"
	labelPass = "Зачёт"
)

func (c ControlType) String() string {
	switch c {
	case ControlExam:
		return labelExam
	case ControlPass:
		return labelPass
	default:
		return ""
	}
}

func ParseControlType(s string) (ControlType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case strings.ToLower(labelExam), "exam":
		return ControlExam, nil
	case strings.ToLower(labelPass), "зачет", "pass":
		return ControlPass, nil
	}
	return ControlNone, fmt.Errorf("unknown control type %q", s)
}

func (c ControlType) MarshalText() ([]byte, error) {
	if c == ControlNone {
		return nil, fmt.Errorf("control type is not set")
	}
	return []byte(c.String()), nil
}

func (c *ControlType) UnmarshalText(text []byte) error {
	parsed, err := ParseControlType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Record is one row of the curriculum for one user and term.
type Record struct {
	Name    string      `json:"name"`
	Hours   int         `json:"hours"`
	Control ControlType `json:"type"`
	Term    int         `json:"semester"`
	UserKey string      `json:"login"`
}

func (r Record) Key() Key {
	return Key{UserKey: r.UserKey, Term: r.Term}
}

// Key identifies the partition of records fetched for one user and term.
type Key struct {
	UserKey string
	Term    int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.UserKey, k.Term)
}

const (
	MinTerm = 1
	MaxTerm = 4
)

func ValidTerm(term int) bool {
	return term >= MinTerm && term <= MaxTerm
}
