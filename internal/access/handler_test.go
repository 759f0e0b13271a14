package access_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/Kyz7/console/internal/access"
	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)

	t.Run("Success - Master staff manages admin", func(t *testing.T) {
		token := app.Token(t, "ms-1", "MASTER_STAFF")
		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/roles/permissions?target=admin", nil, token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)

		var perms access.Permissions
		testutils.ParseData(t, resp, &perms)
		assert.Equal(t, "MASTER_STAFF", perms.Current.String())
		assert.Equal(t, "ADMIN", perms.Target.String())
		assert.True(t, perms.CanManage)
		assert.True(t, perms.CanInvite)
	})

	t.Run("Success - Same level reported separately", func(t *testing.T) {
		token := app.Token(t, "admin-1", "ADMIN")

		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/roles/permissions?target=ADMIN", nil, token)
		require.NoError(t, err)
		var perms access.Permissions
		testutils.ParseData(t, resp, &perms)
		assert.False(t, perms.CanManage)
		assert.True(t, perms.CanManageSameLevel)
	})

	t.Run("Success - Staff cannot reach up", func(t *testing.T) {
		token := app.Token(t, "staff-1", "STAFF")

		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/roles/permissions?target=MASTER_ADMIN", nil, token)
		require.NoError(t, err)
		var perms access.Permissions
		testutils.ParseData(t, resp, &perms)
		assert.False(t, perms.CanManage)
		assert.False(t, perms.CanManageSameLevel)
		assert.False(t, perms.CanInvite)
	})

	t.Run("Error - Unknown target role", func(t *testing.T) {
		token := app.Token(t, "admin-1", "ADMIN")
		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/roles/permissions?target=root", nil, token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("Error - Missing target", func(t *testing.T) {
		token := app.Token(t, "admin-1", "ADMIN")
		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/roles/permissions", nil, token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

func TestInvitableRolesHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)

	t.Run("Success - Admin invites at or below its level", func(t *testing.T) {
		token := app.Token(t, "admin-1", "ADMIN")
		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/roles/invitable", nil, token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Current string   `json:"current"`
			Roles   []string `json:"roles"`
		}
		testutils.ParseData(t, resp, &body)
		assert.Equal(t, "ADMIN", body.Current)
		assert.Equal(t, []string{"ADMIN", "STAFF", "CUSTOMER"}, body.Roles)
	})

	t.Run("Error - Unauthenticated", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/roles/invitable", nil, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestAuditRoute(t *testing.T) {
	app := testutils.SetupTestApp(t)
	require.NoError(t, app.Audit.Record(context.Background(), audit.Entry{
		ActorSubject: "admin-1",
		ActorRole:    "ADMIN",
		Resource:     "users",
		TargetID:     "4",
		Action:       audit.ActionDelete,
		Outcome:      audit.OutcomeSucceeded,
	}))

	t.Run("Success - Admin lists entries", func(t *testing.T) {
		token := app.Token(t, "admin-1", "ADMIN")
		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/audit?resource=users", nil, token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)

		var entries []audit.Entry
		testutils.ParseData(t, resp, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, "4", entries[0].TargetID)
	})

	t.Run("Error - Staff is forbidden", func(t *testing.T) {
		token := app.Token(t, "staff-1", "STAFF")
		resp, err := testutils.MakeRequest(app.App, http.MethodGet, "/audit", nil, token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		testutils.AssertError(t, resp, "FORBIDDEN")
	})
}
