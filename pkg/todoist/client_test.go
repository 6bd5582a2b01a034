package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("secret", 0)
	c.BaseURL = srv.URL + "/api/v1/"
	c.HTTP = srv.Client()
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestSync(t *testing.T) {
	c := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/sync", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "*", r.PostForm.Get("sync_token"))
		assert.Equal(t, `["items","projects","labels"]`, r.PostForm.Get("resource_types"))

		writeJSON(t, w, map[string]any{
			"sync_token": "abc",
			"full_sync":  true,
			"items": []any{
				map[string]any{"id": "1", "content": "Buy milk", "priority": 4, "due": map[string]any{"date": "2024-01-01"}},
				map[string]any{"id": "2", "content": "gone", "is_deleted": true},
			},
			"projects": []any{map[string]any{"id": "p1", "name": "Home", "child_order": 1.5}},
			"labels":   []any{},
		})
	})

	res, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", res.SyncToken)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(4), res.Items[0]["priority"])
	assert.Equal(t, 1.5, res.Projects[0]["child_order"])
	assert.Empty(t, res.Labels)
}

func TestSyncHTTPError(t *testing.T) {
	c := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	_, err := c.Sync(context.Background())
	var storeErr *ExternalStoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusForbidden, storeErr.Status)
	assert.Equal(t, "sync", storeErr.Op)
}

func TestSyncWithoutToken(t *testing.T) {
	c := NewClient("", 0)
	_, err := c.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestCommit(t *testing.T) {
	var got []Command
	c := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("commands")), &got))
		status := map[string]any{}
		for _, cmd := range got {
			status[cmd.UUID] = "ok"
		}
		writeJSON(t, w, map[string]any{"sync_status": status})
	})

	cmds := []Command{
		ItemUpdate("1", map[string]any{"content": "renamed"}),
		ItemClose("2"),
	}
	_, err := c.Commit(context.Background(), cmds)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, TypeItemUpdate, got[0].Type)
	assert.Equal(t, "renamed", got[0].Args["content"])
	assert.Equal(t, "1", got[0].Args["id"])
	assert.Equal(t, TypeItemClose, got[1].Type)
}

func TestCommitAggregatesFailures(t *testing.T) {
	c := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		var cmds []Command
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("commands")), &cmds))
		writeJSON(t, w, map[string]any{"sync_status": map[string]any{
			cmds[0].UUID: "ok",
			cmds[1].UUID: map[string]any{"error_code": 22, "error": "Item not found"},
		}})
	})

	cmds := []Command{ItemDelete("1"), ItemDelete("2"), ItemArchive("3")}
	_, err := c.Commit(context.Background(), cmds)
	var storeErr *ExternalStoreError
	require.ErrorAs(t, err, &storeErr)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "Item not found")
	assert.Equal(t, cmds[1:], Pending(err, cmds))
}

func TestPending(t *testing.T) {
	cmds := []Command{ItemClose("1"), ItemClose("2")}
	assert.Nil(t, Pending(nil, cmds))
	assert.Nil(t, Pending(&ExternalStoreError{Op: "sync", Err: errors.New("down")}, cmds),
		"a failed refresh after the push leaves nothing pending")
	assert.Equal(t, cmds, Pending(&ExternalStoreError{Op: "commit", Status: 500, Err: errors.New("boom")}, cmds))
	assert.Equal(t, cmds, Pending(&ExternalStoreError{Op: "commit", Err: ErrNoToken}, cmds))
}

func TestCommitNothing(t *testing.T) {
	c := NewClient("", 0)
	res, err := c.Commit(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestCommandConstructors(t *testing.T) {
	add := ItemAdd("New task", map[string]any{"priority": 4})
	assert.Equal(t, TypeItemAdd, add.Type)
	assert.NotEmpty(t, add.UUID)
	assert.NotEmpty(t, add.TempID)
	assert.NotEqual(t, add.UUID, add.TempID)
	assert.Equal(t, "New task", add.Args["content"])

	udc := ItemUpdateDateComplete("9", map[string]any{"date": "2024-02-01"})
	assert.Equal(t, map[string]any{"date": "2024-02-01"}, udc.Args["due"])
	assert.NotContains(t, ItemUpdateDateComplete("9", nil).Args, "due")
}
