package reindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/kv/memory"
	"github.com/api-client/net-store/pkg/store"
)

// seedStore builds a populated store: two users, a shared space with a
// project, and history records across every index dimension.
func seedStore(t *testing.T) kv.Store {
	t.Helper()
	ctx := context.Background()

	kvStore := memory.New()
	s, err := store.New(kvStore, store.Options{Secret: "reindex-test-secret"})
	require.NoError(t, err)

	users := []store.User{{Key: "u-a", Name: "A"}, {Key: "u-b", Name: "B"}}
	for _, u := range users {
		require.NoError(t, s.Users.Add(ctx, u))
	}

	owner := users[0]
	_, err = s.Files.Add(ctx, "sp-1", store.File{Kind: store.KindSpace}, owner, store.AddOptions{})
	require.NoError(t, err)
	_, err = s.Files.Add(ctx, "pr-1", store.File{Kind: store.KindProject}, owner, store.AddOptions{Parent: "sp-1"})
	require.NoError(t, err)
	require.NoError(t, s.Files.PatchAccess(ctx, "sp-1", store.AccessPatchInfo{
		Patch: []store.AccessOperation{{Op: "add", Type: store.PermissionUser, Value: &store.PermissionOptions{ID: "u-b", Role: store.RoleReader}}},
	}, owner))

	_, err = s.History.Add(ctx, store.HttpHistory{App: "app-1"}, owner)
	require.NoError(t, err)
	_, err = s.History.Add(ctx, store.HttpHistory{Space: "sp-1"}, owner)
	require.NoError(t, err)
	_, err = s.History.Add(ctx, store.HttpHistory{Space: "sp-1", Project: "pr-1", Request: "rq-1"}, owner)
	require.NoError(t, err)

	deleted, err := s.History.Add(ctx, store.HttpHistory{App: "app-1"}, owner)
	require.NoError(t, err)
	require.NoError(t, s.History.Delete(ctx, deleted.Key, owner))

	return kvStore
}

// derivedRows collects every row under the rebuildable namespaces.
func derivedRows(t *testing.T, kvStore kv.Store) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, prefix := range derivedPrefixes {
		it, err := kvStore.Iterator(kv.IterOptions{Prefix: []byte(prefix)})
		require.NoError(t, err)
		func() {
			defer it.Close()
			for it.Next() {
				value, err := it.Value()
				require.NoError(t, err)
				out[string(it.Key())] = string(value)
			}
		}()
	}
	return out
}

func TestRunReproducesLiveIndexes(t *testing.T) {
	ctx := context.Background()
	kvStore := seedStore(t)
	defer kvStore.Close()

	before := derivedRows(t, kvStore)
	require.NotEmpty(t, before)

	// Simulate drift: a stale extra row and a missing one.
	require.NoError(t, kvStore.Put(ctx, []byte("ha:~app-x~u-a~2020-01-01T00:00:00Z~gone"), []byte("~2020-01-01T00:00:00Z~u-a~gone")))
	for key := range before {
		require.NoError(t, kvStore.Delete(ctx, []byte(key)))
		break
	}

	report, err := New(kvStore).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, before, derivedRows(t, kvStore))
	assert.Equal(t, 3, report.HistoryRows)
	// app + space + (space, project, request) rows.
	assert.Equal(t, 5, report.IndexRows)
	assert.Equal(t, 1, report.SharedLinks)
	assert.Equal(t, 0, report.Skipped)
}

func TestRunSkipsMalformedPrimaries(t *testing.T) {
	ctx := context.Background()
	kvStore := seedStore(t)
	defer kvStore.Close()

	require.NoError(t, kvStore.Put(ctx, []byte("h:~broken"), []byte("{not json")))
	require.NoError(t, kvStore.Put(ctx, []byte("h:no-leading-sep"), []byte(`{"app":"app-1"}`)))

	report, err := New(kvStore).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 3, report.HistoryRows)
}

func TestRunOnEmptyStore(t *testing.T) {
	kvStore := memory.New()
	defer kvStore.Close()

	report, err := New(kvStore).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.HistoryRows+report.IndexRows+report.SharedLinks+report.Skipped)
}
