package role

import (
	"fmt"
	"strings"
)

type Role string

const (
	MasterAdmin Role = "MASTER_ADMIN"
	MasterStaff Role = "MASTER_STAFF"
	Admin       Role = "ADMIN"
	Staff       Role = "STAFF"
	Customer    Role = "CUSTOMER"

	// None marks an absent role (no user loaded, empty row field).
	None Role = ""
)

// All lists every role from most to least privileged.
var All = []Role{MasterAdmin, MasterStaff, Admin, Staff, Customer}

var ranks = map[Role]int{
	MasterAdmin: 0,
	MasterStaff: 1,
	Admin:       2,
	Staff:       3,
	Customer:    4,
}

type InvalidRoleError struct {
	Raw string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid role %q", e.Raw)
}

// Parse normalizes raw and returns the matching role. Unknown or empty input
// yields an *InvalidRoleError carrying the raw value; the caller picks the fallback.
func Parse(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := ranks[r]; !ok {
		return None, &InvalidRoleError{Raw: raw}
	}
	return r, nil
}

func ParseOr(raw string, fallback Role) Role {
	r, err := Parse(raw)
	if err != nil {
		return fallback
	}
	return r
}

// ParseRole is the lenient parser used for display: anything unrecognized maps to Staff.
func ParseRole(raw string) Role {
	return ParseOr(raw, Staff)
}

func Rank(r Role) (int, bool) {
	rank, ok := ranks[r]
	return rank, ok
}

func (r Role) Valid() bool {
	_, ok := ranks[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// CanInvite reports whether current may invite target: roles at or below its own level.
func CanInvite(current, target Role) bool {
	c, ok := Rank(current)
	if !ok {
		return false
	}
	t, ok := Rank(target)
	if !ok {
		return false
	}
	return c <= t
}

type ManageOptions struct {
	AllowSameLevel bool
}

// CanManage reports whether current may edit or delete a record owned by target.
// Without AllowSameLevel a strictly higher privilege is required, and only the
// master roles may manage an Admin.
func CanManage(current, target Role, opts ManageOptions) bool {
	c, ok := Rank(current)
	if !ok {
		return false
	}
	t, ok := Rank(target)
	if !ok {
		return false
	}

	if opts.AllowSameLevel {
		return c <= t
	}

	if target == Admin {
		return current == MasterAdmin || current == MasterStaff
	}

	return c < t
}

func InvitableRoles(current Role) []Role {
	var out []Role
	for _, r := range All {
		if CanInvite(current, r) {
			out = append(out, r)
		}
	}
	return out
}

// AtLeast reports whether current is as privileged as minimum or more.
func AtLeast(current, minimum Role) bool {
	c, ok := Rank(current)
	if !ok {
		return false
	}
	m, ok := Rank(minimum)
	return ok && c <= m
}
