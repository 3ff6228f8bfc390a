package roster

import "encoding/json"

// Role is the homeroom role of a teacher.
type Role string

const (
	RoleHomeroom  Role = "homeroom"
	RoleAssistant Role = "assistant"
)

// Text returns the display label stored alongside the role.
func (r Role) Text() string {
	switch r {
	case RoleHomeroom:
		return "学級担任"
	case RoleAssistant:
		return "副担任"
	default:
		return ""
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleHomeroom || r == RoleAssistant
}

// ClassType distinguishes regular classes from special-support classes.
type ClassType string

const (
	ClassRegular        ClassType = "regular"
	ClassSpecialSupport ClassType = "special_support"
)

// ClassRef points a teacher assignment at a class. ClassName is a display
// copy of the class name and is refreshed when the class is renamed.
type ClassRef struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className,omitempty"`
}

// SubjectAssignment is one subject a teacher teaches and the classes it is
// taught in.
type SubjectAssignment struct {
	Subject string     `json:"subject"`
	Classes []ClassRef `json:"classes"`
}

// Teacher is a staff member on the roster.
type Teacher struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Grade    int                 `json:"grade"`
	Role     Role                `json:"role"`
	RoleText string              `json:"roleText"`
	Subjects []SubjectAssignment `json:"subjects"`
	Meetings []string            `json:"meetings"`
}

// ClassRoom is a homeroom class. ID has the form "<grade>-<number>" and never
// changes once created.
type ClassRoom struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Grade  int       `json:"grade"`
	Type   ClassType `json:"type"`
	Active bool      `json:"active"`
}

// Subject is a catalog entry used to tag teacher assignments.
type Subject struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Meeting is a recurring staff meeting at a fixed weekday and period.
type Meeting struct {
	Name   string `json:"name"`
	Day    int    `json:"day"`
	Period int    `json:"period"`
}

// Schedule is carried verbatim through persistence and import/export.
// Timetable generation is not implemented, so its content is opaque.
type Schedule map[string]json.RawMessage

// Snapshot is the canonical persisted and exported form of the Entity Store.
type Snapshot struct {
	Teachers  []Teacher   `json:"teachers"`
	Classes   []ClassRoom `json:"classes"`
	Subjects  []Subject   `json:"subjects"`
	Schedule  Schedule    `json:"schedule"`
	Timestamp int64       `json:"timestamp"`
}

// HoursConfig maps special-support subject codes to weekly hours.
type HoursConfig map[string]int
