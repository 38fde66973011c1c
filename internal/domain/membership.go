package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TeamMembership is one ledger row linking a child team (SourceID) to a
// parent team (TargetID) for the validity window DateRange. Soft-deleted
// rows are retained for history but excluded from every invariant check
// and from projection.
type TeamMembership struct {
	ID        string
	SourceID  string
	TargetID  string
	DateRange DateRange
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the membership is the team's current parent link.
func (m *TeamMembership) IsOpen() bool {
	return m.DateRange.IsOpen()
}

// Membership rule violations, reported verbatim in validation failures.
const (
	RuleParentType = "parent must be an active team of teams"
	RuleSelfParent = "a team cannot be its own parent"
	RuleDateOrder  = "start date must precede end date"
	RuleOverlap    = "date range overlaps an existing membership"
	RuleOneOpen    = "team already has an open membership"
	RuleCycle      = "membership would make the team an ancestor of itself"
)

// ErrMembershipNotFound indicates the aggregate holds no live row with the
// requested id.
var ErrMembershipNotFound = errors.New("membership not found")

// ValidationError carries every membership rule violated by a command.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "membership validation failed: " + strings.Join(e.Violations, "; ")
}

// AddMembership validates and appends a new parent link for the team.
// It returns a *ValidationError listing all violated rules, never a partial
// application. The cycle rule needs ancestor state beyond this aggregate and
// is enforced by the membership service before the aggregate is persisted.
func (t *Team) AddMembership(parent *Team, r DateRange) (*TeamMembership, error) {
	violations := t.validateRange(r, "")
	if parent == nil || !parent.CanBeParent() {
		violations = append(violations, RuleParentType)
	}
	if parent != nil && parent.ID == t.ID {
		violations = append(violations, RuleSelfParent)
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	now := time.Now().UTC()
	membership := TeamMembership{
		ID:        uuid.NewString(),
		SourceID:  t.ID,
		TargetID:  parent.ID,
		DateRange: r,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.Memberships = append(t.Memberships, membership)
	return &t.Memberships[len(t.Memberships)-1], nil
}

// UpdateMembership re-validates the edited row's new window against the
// sibling set excluding the row itself.
func (t *Team) UpdateMembership(membershipID string, r DateRange) (*TeamMembership, error) {
	target := t.findMembership(membershipID)
	if target == nil {
		return nil, ErrMembershipNotFound
	}
	if violations := t.validateRange(r, membershipID); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	target.DateRange = r
	target.UpdatedAt = time.Now().UTC()
	return target, nil
}

// RemoveMembership soft-deletes the row. A team may be left with zero
// active parents; a team of teams acting as a root is legal.
func (t *Team) RemoveMembership(membershipID string) (*TeamMembership, error) {
	target := t.findMembership(membershipID)
	if target == nil {
		return nil, ErrMembershipNotFound
	}
	target.IsDeleted = true
	target.UpdatedAt = time.Now().UTC()
	return target, nil
}

// OpenMembership returns the team's current parent link, if any.
func (t *Team) OpenMembership() *TeamMembership {
	for i := range t.Memberships {
		m := &t.Memberships[i]
		if !m.IsDeleted && m.IsOpen() {
			return m
		}
	}
	return nil
}

func (t *Team) findMembership(id string) *TeamMembership {
	for i := range t.Memberships {
		if t.Memberships[i].ID == id && !t.Memberships[i].IsDeleted {
			return &t.Memberships[i]
		}
	}
	return nil
}

func (t *Team) validateRange(r DateRange, excludeID string) []string {
	var violations []string
	if !r.IsValid() {
		violations = append(violations, RuleDateOrder)
		return violations
	}
	overlap := false
	openClash := false
	for i := range t.Memberships {
		m := &t.Memberships[i]
		if m.IsDeleted || m.ID == excludeID {
			continue
		}
		if m.DateRange.Overlaps(r) {
			overlap = true
		}
		if m.IsOpen() && r.IsOpen() {
			openClash = true
		}
	}
	if overlap {
		violations = append(violations, RuleOverlap)
	}
	if openClash {
		violations = append(violations, RuleOneOpen)
	}
	return violations
}
