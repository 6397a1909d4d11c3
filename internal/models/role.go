package models

// Role is the closed set of account roles. Permission checks match roles exactly.
type Role string

const (
	RoleStudent Role = "student"
	RoleTA      Role = "ta"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTA, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// Marking is the outcome recorded by an evaluation.
type Marking string

const (
	MarkingDone    Marking = "done"
	MarkingPartial Marking = "partial"
	MarkingNotDone Marking = "not_done"
)

// Valid reports whether m is one of the known markings.
func (m Marking) Valid() bool {
	switch m {
	case MarkingDone, MarkingPartial, MarkingNotDone:
		return true
	default:
		return false
	}
}
