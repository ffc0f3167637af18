package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/api-client/net-store/pkg/kv/memory"
)

const testSecret = "test-secret-0123456789"

var (
	alice = User{Key: "u-alice", Name: "Alice"}
	bob   = User{Key: "u-bob", Name: "Bob"}
	carol = User{Key: "u-carol", Name: "Carol"}
	nadia = User{Key: "u-nadia", Name: "Nadia"}
)

// newTestStore creates a store over the in-memory engine with a capturing
// sink and all well-known test users registered.
func newTestStore(t *testing.T) (*Store, *CapturingSink) {
	t.Helper()
	ctx := context.Background()

	sink := NewCapturingSink()
	s, err := New(memory.New(), Options{Secret: testSecret, Sink: sink})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, u := range []User{alice, bob, carol, nadia} {
		require.NoError(t, s.Users.Add(ctx, u))
	}
	return s, sink
}

// mustAddSpace creates a space owned by user.
func mustAddSpace(t *testing.T, s *Store, key string, user User) *File {
	t.Helper()
	file, err := s.Files.Add(context.Background(), key, File{Kind: KindSpace, Name: key}, user, AddOptions{})
	require.NoError(t, err)
	return file
}

// mustAddChild creates a file under a parent.
func mustAddChild(t *testing.T, s *Store, key, kind, parent string, user User) *File {
	t.Helper()
	file, err := s.Files.Add(context.Background(), key, File{Kind: kind, Name: key}, user, AddOptions{Parent: parent})
	require.NoError(t, err)
	return file
}

// mustShare grants a user role on a file through the access patch path.
func mustShare(t *testing.T, s *Store, key string, target User, role Role, by User) {
	t.Helper()
	err := s.Files.PatchAccess(context.Background(), key, AccessPatchInfo{
		Patch: []AccessOperation{{
			Op:    "add",
			Type:  PermissionUser,
			Value: &PermissionOptions{ID: target.Key, Role: role},
		}},
	}, by)
	require.NoError(t, err)
}

// fixedClock pins nowMillis for the duration of the test.
func fixedClock(t *testing.T, millis int64) {
	t.Helper()
	prev := nowMillis
	nowMillis = func() int64 { return millis }
	t.Cleanup(func() { nowMillis = prev })
}

// requireCode asserts that err is a StoreError with the given code.
func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "unexpected error code for %v", err)
}
