package access

// Assignee is an optional reference to the user a hazard is assigned to.
// The zero value means unassigned.
type Assignee struct {
	userID   int64
	assigned bool
}

func Unassigned() Assignee {
	return Assignee{}
}

func AssignedTo(userID int64) Assignee {
	return Assignee{userID: userID, assigned: true}
}

// AssigneeFromPtr adapts a nullable column value.
func AssigneeFromPtr(userID *int64) Assignee {
	if userID == nil {
		return Unassigned()
	}
	return AssignedTo(*userID)
}

func (a Assignee) IsSet() bool {
	return a.assigned
}

// IsUser reports whether the hazard is assigned to userID.
func (a Assignee) IsUser(userID int64) bool {
	return a.assigned && a.userID == userID
}

// UserID returns the assignee and whether one is set.
func (a Assignee) UserID() (int64, bool) {
	return a.userID, a.assigned
}

// HazardSnapshot is the read model every policy decision is made against.
// Callers build a fresh snapshot per decision; the engine never stores it.
type HazardSnapshot struct {
	ReportedBy int64
	AssignedTo Assignee
	Status     Status
}

func (h *HazardSnapshot) reportedBy(userID int64) bool {
	return h.ReportedBy == userID
}

func (h *HazardSnapshot) openAndUnassigned() bool {
	return !h.AssignedTo.IsSet() && h.Status == StatusOpen
}
