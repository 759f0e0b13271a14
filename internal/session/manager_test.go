package session_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/Kyz7/console/internal/apiclient"
	"github.com/Kyz7/console/internal/resource"
	"github.com/Kyz7/console/internal/session"
	"github.com/Kyz7/console/internal/tablequery"
	"github.com/Kyz7/console/internal/viewstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type emptyLister struct{}

func (emptyLister) List(ctx context.Context, ts oauth2.TokenSource, path string, q url.Values) (*apiclient.ListPage, error) {
	return &apiclient.ListPage{
		Items:      []map[string]any{},
		Pagination: apiclient.PaginationMeta{Page: 1, PerPage: 10, TotalPages: 1},
	}, nil
}

func TestAcquire(t *testing.T) {
	m := session.NewManager(emptyLister{}, 10*time.Millisecond, nil)
	defer m.Close()

	w := m.Acquire("user-1", apiclient.BearerToken("a"))
	for _, def := range resource.All() {
		o, ok := w.Table(def.Name)
		require.True(t, ok, def.Name)
		assert.Equal(t, def.Path, o.Definition().Path)
	}

	t.Run("Success - Same subject reuses the workspace", func(t *testing.T) {
		again := m.Acquire("user-1", apiclient.BearerToken("b"))
		assert.Same(t, w, again)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("Success - Subjects are isolated", func(t *testing.T) {
		other := m.Acquire("user-2", apiclient.BearerToken("c"))
		assert.NotSame(t, w, other)

		users, _ := w.Table(resource.Users)
		otherUsers, _ := other.Table(resource.Users)
		assert.NotSame(t, users.Store(), otherUsers.Store())
	})
}

func TestDispose(t *testing.T) {
	m := session.NewManager(emptyLister{}, 10*time.Millisecond, nil)
	defer m.Close()

	w := m.Acquire("user-1", apiclient.BearerToken("a"))
	users, _ := w.Table(resource.Users)
	users.Store().SyncFromURL(tablequery.View{PageIndex: 3, PageSize: 10})

	assert.True(t, m.Dispose("user-1"))
	assert.False(t, m.Dispose("user-1"))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, viewstate.Pagination{PageIndex: 0, PageSize: 10}, users.Store().Snapshot().Pagination)
	assert.False(t, users.Refresh())
}

func TestSweep(t *testing.T) {
	m := session.NewManager(emptyLister{}, 10*time.Millisecond, nil)
	defer m.Close()

	m.Acquire("user-1", apiclient.BearerToken("a"))
	m.Acquire("user-2", apiclient.BearerToken("b"))

	assert.Equal(t, 0, m.Sweep(time.Hour))
	assert.Equal(t, 2, m.Sweep(-time.Second))
	assert.Equal(t, 0, m.Len())
}

func TestRunStopsWithContext(t *testing.T) {
	m := session.NewManager(emptyLister{}, 10*time.Millisecond, nil)
	m.Acquire("user-1", apiclient.BearerToken("a"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond, -time.Second)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
