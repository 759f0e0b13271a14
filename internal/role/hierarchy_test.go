package role_test

import (
	"errors"
	"testing"

	"github.com/Kyz7/console/internal/role"
	"github.com/stretchr/testify/assert"
)

// ========== PARSING ==========

func TestParseRole(t *testing.T) {
	t.Run("Success - Normalizes casing and whitespace", func(t *testing.T) {
		assert.Equal(t, role.Staff, role.ParseRole("staff"))
		assert.Equal(t, role.Staff, role.ParseRole("  Staff "))
		assert.Equal(t, role.MasterAdmin, role.ParseRole("master_admin"))
		assert.Equal(t, role.Customer, role.ParseRole("\tCUSTOMER\n"))
	})

	t.Run("Success - Empty and unknown fall back to STAFF", func(t *testing.T) {
		assert.Equal(t, role.Staff, role.ParseRole(""))
		assert.Equal(t, role.Staff, role.ParseRole("bogus"))
		assert.Equal(t, role.Staff, role.ParseRole("super-admin"))
	})
}

func TestParseStrict(t *testing.T) {
	t.Run("Success - Known role", func(t *testing.T) {
		r, err := role.Parse(" admin ")
		assert.NoError(t, err)
		assert.Equal(t, role.Admin, r)
	})

	t.Run("Error - Unknown role keeps raw input", func(t *testing.T) {
		r, err := role.Parse(" Bogus")
		assert.Equal(t, role.None, r)

		var invalid *role.InvalidRoleError
		assert.True(t, errors.As(err, &invalid))
		assert.Equal(t, " Bogus", invalid.Raw)
	})

	t.Run("Error - Empty input", func(t *testing.T) {
		_, err := role.Parse("")
		assert.Error(t, err)
	})

	t.Run("Success - ParseOr uses caller fallback", func(t *testing.T) {
		assert.Equal(t, role.Customer, role.ParseOr("nope", role.Customer))
		assert.Equal(t, role.None, role.ParseOr("nope", role.None))
		assert.Equal(t, role.Admin, role.ParseOr("ADMIN", role.Customer))
	})
}

// ========== PERMISSIONS ==========

func TestRankIsTotal(t *testing.T) {
	for i, a := range role.All {
		ra, ok := role.Rank(a)
		assert.True(t, ok)
		assert.Equal(t, i, ra)
		assert.True(t, role.CanManage(a, a, role.ManageOptions{AllowSameLevel: true}), a)
		for _, b := range role.All {
			rb, _ := role.Rank(b)
			assert.True(t, ra <= rb || rb <= ra)
		}
	}
}

func TestCanManage(t *testing.T) {
	cases := []struct {
		name    string
		current role.Role
		target  role.Role
		opts    role.ManageOptions
		want    bool
	}{
		{"admin cannot manage admin", role.Admin, role.Admin, role.ManageOptions{}, false},
		{"admin manages admin at same level", role.Admin, role.Admin, role.ManageOptions{AllowSameLevel: true}, true},
		{"master admin manages admin", role.MasterAdmin, role.Admin, role.ManageOptions{}, true},
		{"master staff manages admin", role.MasterStaff, role.Admin, role.ManageOptions{}, true},
		{"staff cannot manage admin", role.Staff, role.Admin, role.ManageOptions{}, false},
		{"admin manages staff", role.Admin, role.Staff, role.ManageOptions{}, true},
		{"staff manages customer", role.Staff, role.Customer, role.ManageOptions{}, true},
		{"customer cannot manage staff", role.Customer, role.Staff, role.ManageOptions{}, false},
		{"master staff cannot manage master admin", role.MasterStaff, role.MasterAdmin, role.ManageOptions{}, false},
		{"master admin cannot manage master admin", role.MasterAdmin, role.MasterAdmin, role.ManageOptions{}, false},
		{"staff cannot reach up with same level", role.Staff, role.Admin, role.ManageOptions{AllowSameLevel: true}, false},
		{"absent current", role.None, role.Staff, role.ManageOptions{}, false},
		{"absent target", role.MasterAdmin, role.None, role.ManageOptions{AllowSameLevel: true}, false},
		{"unknown role", role.Role("ROOT"), role.Customer, role.ManageOptions{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, role.CanManage(tc.current, tc.target, tc.opts))
		})
	}
}

func TestCanInvite(t *testing.T) {
	assert.True(t, role.CanInvite(role.Admin, role.Staff))
	assert.False(t, role.CanInvite(role.Staff, role.Admin))
	assert.True(t, role.CanInvite(role.Admin, role.Admin))
	assert.True(t, role.CanInvite(role.MasterAdmin, role.MasterAdmin))
	assert.False(t, role.CanInvite(role.None, role.Customer))
	assert.False(t, role.CanInvite(role.Customer, role.None))
}

func TestInvitableRoles(t *testing.T) {
	assert.Equal(t, []role.Role{role.Admin, role.Staff, role.Customer}, role.InvitableRoles(role.Admin))
	assert.Equal(t, role.All, role.InvitableRoles(role.MasterAdmin))
	assert.Equal(t, []role.Role{role.Customer}, role.InvitableRoles(role.Customer))
	assert.Empty(t, role.InvitableRoles(role.None))
}

func TestAtLeast(t *testing.T) {
	assert.True(t, role.AtLeast(role.MasterAdmin, role.Admin))
	assert.True(t, role.AtLeast(role.Admin, role.Admin))
	assert.False(t, role.AtLeast(role.Staff, role.Admin))
	assert.False(t, role.AtLeast(role.None, role.Customer))
}
