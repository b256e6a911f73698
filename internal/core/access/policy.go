// Package access holds the hazard authorization rules. Every function here
// is pure: decisions depend only on the role, the acting user and the
// hazard snapshot passed in, so they can be called from any goroutine.
package access

// Policy decides who may view, edit, assign and transition a hazard.
// The zero value is ready to use.
type Policy struct{}

// CanView reports whether the user may read the hazard.
func (Policy) CanView(role Role, userID int64, h *HazardSnapshot) bool {
	if h == nil {
		return false
	}

	switch role {
	case RoleSafetyOfficer:
		return true
	case RoleFieldWorker:
		return h.reportedBy(userID) || h.AssignedTo.IsUser(userID)
	case RoleSiteManager:
		// open unassigned hazards stay visible so managers can claim them
		return h.AssignedTo.IsUser(userID) || h.reportedBy(userID) || h.openAndUnassigned()
	default:
		return false
	}
}

// CanEditDetails reports whether the user may change title, description,
// severity, type or due date. Viewing is a prerequisite.
func (p Policy) CanEditDetails(role Role, userID int64, h *HazardSnapshot) bool {
	if !p.CanView(role, userID, h) {
		return false
	}

	switch role {
	case RoleSafetyOfficer:
		return true
	case RoleFieldWorker:
		// only until somebody takes ownership
		return h.reportedBy(userID) && h.openAndUnassigned()
	case RoleSiteManager:
		return h.AssignedTo.IsUser(userID) || h.reportedBy(userID)
	default:
		return false
	}
}

// CanSelfAssign reports whether the user may claim the hazard.
func (Policy) CanSelfAssign(role Role, userID int64, h *HazardSnapshot) bool {
	if h == nil || role != RoleSiteManager {
		return false
	}
	return h.openAndUnassigned()
}

// CanAssignToOther reports whether the role may assign hazards to a third
// party.
func (Policy) CanAssignToOther(role Role) bool {
	return role == RoleSafetyOfficer
}

// CanChangeStatus reports whether the user may move the hazard to
// newStatus.
func (p Policy) CanChangeStatus(role Role, userID int64, h *HazardSnapshot, newStatus Status) bool {
	if !p.CanView(role, userID, h) {
		return false
	}

	switch role {
	case RoleSafetyOfficer:
		return newStatus.IsKnown()
	case RoleSiteManager:
		if !h.AssignedTo.IsUser(userID) {
			return false
		}
		next, ok := h.Status.next()
		return ok && next == newStatus
	default:
		return false
	}
}

// AllowedNextStatuses lists the statuses CanChangeStatus accepts for this
// user and hazard. The result is never nil.
func (p Policy) AllowedNextStatuses(role Role, userID int64, h *HazardSnapshot) []Status {
	if !p.CanView(role, userID, h) {
		return []Status{}
	}

	switch role {
	case RoleSafetyOfficer:
		return AllStatuses()
	case RoleSiteManager:
		if !h.AssignedTo.IsUser(userID) {
			return []Status{}
		}
		if next, ok := h.Status.next(); ok {
			return []Status{next}
		}
		return []Status{}
	default:
		return []Status{}
	}
}

// CanAddComment reports whether the role may append comments. Comments are
// audit entries, so any authenticated role qualifies.
func (Policy) CanAddComment(role Role) bool {
	return role.IsKnown()
}

// Decision bundles every permission of one user on one hazard.
type Decision struct {
	CanView             bool     `json:"can_view"`
	CanEditDetails      bool     `json:"can_edit_details"`
	CanSelfAssign       bool     `json:"can_self_assign"`
	CanAssignToOther    bool     `json:"can_assign_to_other"`
	CanAddComment       bool     `json:"can_add_comment"`
	AllowedNextStatuses []string `json:"allowed_next_statuses"`
}

// Decide evaluates all rules for the hazard at once.
func (p Policy) Decide(role Role, userID int64, h *HazardSnapshot) Decision {
	if !p.CanView(role, userID, h) {
		return Decision{AllowedNextStatuses: []string{}}
	}
	return Decision{
		CanView:             true,
		CanEditDetails:      p.CanEditDetails(role, userID, h),
		CanSelfAssign:       p.CanSelfAssign(role, userID, h),
		CanAssignToOther:    p.CanAssignToOther(role),
		CanAddComment:       p.CanAddComment(role),
		AllowedNextStatuses: StatusLabels(p.AllowedNextStatuses(role, userID, h)),
	}
}
