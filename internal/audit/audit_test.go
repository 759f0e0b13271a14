package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *audit.Store {
	return audit.NewStore(testutils.TestDB(t))
}

func TestRecordAndList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Now()
	entries := []audit.Entry{
		{ActorSubject: "1", ActorRole: "ADMIN", Resource: "users", TargetID: "10", Action: audit.ActionDelete, Outcome: audit.OutcomeSucceeded, CreatedAt: base},
		{ActorSubject: "1", ActorRole: "ADMIN", Resource: "customers", TargetID: "3", Action: audit.ActionDelete, Outcome: audit.OutcomeFailed, CreatedAt: base.Add(time.Second)},
		{ActorSubject: "2", ActorRole: "STAFF", Resource: "users", TargetID: "11", Action: audit.ActionDelete, Outcome: audit.OutcomeDenied, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(ctx, e.WithDetails(map[string]any{"path": "/" + e.Resource})))
	}

	t.Run("Success - Newest first", func(t *testing.T) {
		all, err := store.List(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "11", all[0].TargetID)
		assert.NotEqual(t, uuid.Nil, all[0].ID)
	})

	t.Run("Success - Filter by resource", func(t *testing.T) {
		users, err := store.List(ctx, "users", 10)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		var details map[string]any
		require.NoError(t, json.Unmarshal(users[0].Details, &details))
		assert.Equal(t, "/users", details["path"])
	})

	t.Run("Success - Limit", func(t *testing.T) {
		one, err := store.List(ctx, "", 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)
	})
}
