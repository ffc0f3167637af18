package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appRecord(url string) HttpHistory {
	return HttpHistory{
		App: "app-1",
		Log: HistoryLog{
			Request:  &HistoryRequest{URL: url, Method: "GET"},
			Response: &HistoryResponse{Status: 200},
		},
	}
}

func TestHistoryAdd_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.History.Add(ctx, HttpHistory{}, alice)
	requireCode(t, err, ErrBadRequest)

	// A request record needs a project.
	_, err = s.History.Add(ctx, HttpHistory{Request: "req-1", Space: "sp", Project: ""}, alice)
	requireCode(t, err, ErrBadRequest)

	// A project record needs a space.
	_, err = s.History.Add(ctx, HttpHistory{Project: "pr-1"}, alice)
	requireCode(t, err, ErrBadRequest)

	_, err = s.History.Add(ctx, appRecord("https://api.example.com"), User{})
	requireCode(t, err, ErrUnauthenticated)
}

func TestHistoryAdd_StampsServerFields(t *testing.T) {
	s, sink := newTestStore(t)
	ctx := context.Background()
	fixedClock(t, 1700000000000)

	record := appRecord("https://api.example.com/items")
	record.Key = "forged-key"
	record.User = bob.Key
	record.Created = 1
	record.Deleted = true

	created, err := s.History.Add(ctx, record, alice)
	require.NoError(t, err)

	assert.NotEqual(t, "forged-key", created.Key)
	assert.Equal(t, alice.Key, created.User)
	assert.Equal(t, int64(1700000000000), created.Created)
	assert.False(t, created.Deleted)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, OperationCreated, events[0].Event.Operation)
	assert.Equal(t, RouteHistory, events[0].Filter.URL)
	assert.Equal(t, []string{alice.Key}, events[0].Filter.Users)
}

func TestHistoryAdd_SpaceRequiresWriter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustAddSpace(t, s, "h-space", alice)
	mustShare(t, s, "h-space", bob, RoleReader, alice)

	record := HttpHistory{Space: "h-space", Log: HistoryLog{Request: &HistoryRequest{URL: "https://x"}}}

	_, err := s.History.Add(ctx, record, bob)
	requireCode(t, err, ErrForbidden)

	_, err = s.History.Add(ctx, record, carol)
	requireCode(t, err, ErrNotFound)

	_, err = s.History.Add(ctx, record, alice)
	require.NoError(t, err)
}

func TestHistoryReadAndDelete_OwnerScoped(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.History.Add(ctx, appRecord("https://api.example.com"), alice)
	require.NoError(t, err)

	got, err := s.History.Read(ctx, created.Key, alice)
	require.NoError(t, err)
	assert.Equal(t, created.Key, got.Key)

	// App-scoped records are invisible to everyone else.
	_, err = s.History.Read(ctx, created.Key, bob)
	requireCode(t, err, ErrNotFound)

	// Only the creator can delete.
	err = s.History.Delete(ctx, created.Key, bob)
	requireCode(t, err, ErrForbidden)
	require.NoError(t, s.History.Delete(ctx, created.Key, alice))

	_, err = s.History.Read(ctx, created.Key, alice)
	requireCode(t, err, ErrNotFound)

	// Garbage keys decode as absent, never as an internal error.
	_, err = s.History.Read(ctx, "%%%not-base64%%%", alice)
	requireCode(t, err, ErrNotFound)
}

func TestHistoryRead_SpaceScopedVisibility(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustAddSpace(t, s, "hv-space", alice)
	mustShare(t, s, "hv-space", bob, RoleReader, alice)

	created, err := s.History.Add(ctx, HttpHistory{Space: "hv-space", Log: HistoryLog{Request: &HistoryRequest{URL: "https://x"}}}, alice)
	require.NoError(t, err)

	// Any space reader can read the record.
	got, err := s.History.Read(ctx, created.Key, bob)
	require.NoError(t, err)
	assert.Equal(t, created.Key, got.Key)

	// Non-members cannot tell it exists.
	_, err = s.History.Read(ctx, created.Key, carol)
	requireCode(t, err, ErrNotFound)
}

func TestHistoryList_UserDefaultScope(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		fixedClock(t, int64(1700000000000+i*1000))
		_, err := s.History.Add(ctx, appRecord(fmt.Sprintf("https://a/%d", i)), alice)
		require.NoError(t, err)
	}
	_, err := s.History.Add(ctx, appRecord("https://b/0"), bob)
	require.NoError(t, err)

	page, err := s.History.List(ctx, alice, HistoryListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	// Newest first.
	assert.Equal(t, "https://a/2", page.Items[0].Log.Request.URL)
	for _, item := range page.Items {
		assert.Equal(t, alice.Key, item.User)
		assert.NotEmpty(t, item.Key)
	}
}

func TestHistoryList_AppIndexPagination(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const total = 40
	for i := 0; i < total; i++ {
		fixedClock(t, int64(1700000000000+i*1000))
		_, err := s.History.Add(ctx, appRecord(fmt.Sprintf("https://pag/%d", i)), alice)
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := s.History.List(ctx, alice, HistoryListOptions{
			Type:   HistoryTypeApp,
			ID:     "app-1",
			Limit:  10,
			Cursor: cursor,
		})
		require.NoError(t, err)
		if len(page.Items) == 0 {
			assert.Equal(t, cursor, page.Cursor)
			break
		}
		for _, item := range page.Items {
			assert.False(t, seen[item.Key], "duplicate record %s", item.Key)
			seen[item.Key] = true
		}
		cursor = page.Cursor
		pages++
		require.LessOrEqual(t, pages, total/10+1)
	}
	assert.Len(t, seen, total)
	assert.Equal(t, 4, pages)
}

func TestHistoryList_SpaceAndProjectScopes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustAddSpace(t, s, "hl-space", alice)
	mustShare(t, s, "hl-space", bob, RoleReader, alice)

	_, err := s.History.Add(ctx, HttpHistory{Space: "hl-space", Log: HistoryLog{Request: &HistoryRequest{URL: "https://space-rec"}}}, alice)
	require.NoError(t, err)
	_, err = s.History.Add(ctx, HttpHistory{Space: "hl-space", Project: "hl-proj", Log: HistoryLog{Request: &HistoryRequest{URL: "https://proj-rec"}}}, alice)
	require.NoError(t, err)

	// Space scope: readers see records regardless of who created them.
	page, err := s.History.List(ctx, bob, HistoryListOptions{Type: HistoryTypeSpace, ID: "hl-space"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	// Project scope narrows within the space.
	page, err = s.History.List(ctx, bob, HistoryListOptions{Type: HistoryTypeProject, ID: "hl-proj", Space: "hl-space"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://proj-rec", page.Items[0].Log.Request.URL)

	// Non-members are denied as not-found.
	_, err = s.History.List(ctx, carol, HistoryListOptions{Type: HistoryTypeSpace, ID: "hl-space"})
	requireCode(t, err, ErrNotFound)

	// Project scope without its space is malformed.
	_, err = s.History.List(ctx, bob, HistoryListOptions{Type: HistoryTypeProject, ID: "hl-proj"})
	requireCode(t, err, ErrBadRequest)

	// A typed listing without an id is malformed.
	_, err = s.History.List(ctx, bob, HistoryListOptions{Type: HistoryTypeSpace})
	requireCode(t, err, ErrBadRequest)
}

func TestHistoryList_QueryFilter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.History.Add(ctx, appRecord("https://api.example.com/orders"), alice)
	require.NoError(t, err)
	record := appRecord("https://api.example.com/users")
	record.Log.Response.Payload = json.RawMessage(`{"data":"{\"customer\":\"ACME Corp\"}"}`)
	_, err = s.History.Add(ctx, record, alice)
	require.NoError(t, err)

	page, err := s.History.List(ctx, alice, HistoryListOptions{Query: "ORDERS"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://api.example.com/orders", page.Items[0].Log.Request.URL)

	// The response payload participates in matching, including wrapped
	// string bodies.
	page, err = s.History.List(ctx, alice, HistoryListOptions{Query: "acme"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://api.example.com/users", page.Items[0].Log.Request.URL)

	// So does the request payload.
	record = appRecord("https://api.example.com/invoices")
	record.Log.Request.Payload = json.RawMessage(`"{\"memo\":\"quarterly billing run\"}"`)
	_, err = s.History.Add(ctx, record, alice)
	require.NoError(t, err)

	page, err = s.History.List(ctx, alice, HistoryListOptions{Query: "quarterly billing"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://api.example.com/invoices", page.Items[0].Log.Request.URL)

	page, err = s.History.List(ctx, alice, HistoryListOptions{Query: "no-such-term"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestHistoryList_DeletedRecordsSkipped(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	kept, err := s.History.Add(ctx, appRecord("https://keep"), alice)
	require.NoError(t, err)
	dropped, err := s.History.Add(ctx, appRecord("https://drop"), alice)
	require.NoError(t, err)
	require.NoError(t, s.History.Delete(ctx, dropped.Key, alice))

	// Both the primary scan and the app index skip the deleted record.
	page, err := s.History.List(ctx, alice, HistoryListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, kept.Key, page.Items[0].Key)

	page, err = s.History.List(ctx, alice, HistoryListOptions{Type: HistoryTypeApp, ID: "app-1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, kept.Key, page.Items[0].Key)
}

func TestHistoryList_CursorBoundToUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		fixedClock(t, int64(1700000000000+i*1000))
		_, err := s.History.Add(ctx, appRecord(fmt.Sprintf("https://c/%d", i)), alice)
		require.NoError(t, err)
	}

	page, err := s.History.List(ctx, alice, HistoryListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// Another user cannot replay the cursor.
	_, err = s.History.List(ctx, bob, HistoryListOptions{Cursor: page.Cursor})
	requireCode(t, err, ErrBadRequest)

	_, err = s.History.List(ctx, alice, HistoryListOptions{Cursor: "garbage"})
	requireCode(t, err, ErrBadRequest)
}

func TestHistoryList_UserTypeIsPrimaryScan(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	fixedClock(t, 1700000000000)
	_, err := s.History.Add(ctx, appRecord("https://mine/0"), alice)
	require.NoError(t, err)

	// "user" is not an index; it selects the same primary scan as an
	// empty type, and needs no id.
	page, err := s.History.List(ctx, alice, HistoryListOptions{Type: HistoryTypeUser})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://mine/0", page.Items[0].Log.Request.URL)
	assert.Equal(t, alice.Key, page.Items[0].User)
}

func TestHistoryList_AppIndexScopedPerUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		fixedClock(t, int64(1700000000000+i*1000))
		_, err := s.History.Add(ctx, appRecord(fmt.Sprintf("https://u1/%d", i)), alice)
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		fixedClock(t, int64(1700100000000+i*1000))
		_, err := s.History.Add(ctx, appRecord(fmt.Sprintf("https://u2/%d", i)), bob)
		require.NoError(t, err)
	}

	// Same app id, but the index is keyed per user: bob sees exactly his
	// ten records and none of alice's.
	page, err := s.History.List(ctx, bob, HistoryListOptions{
		Type:  HistoryTypeApp,
		ID:    "app-1",
		Limit: 100,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	for _, item := range page.Items {
		assert.Equal(t, bob.Key, item.User)
	}
}
