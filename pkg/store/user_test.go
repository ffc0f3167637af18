package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAddAndRead(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.Users.Add(ctx, User{Name: "No Key"})
	requireCode(t, err, ErrValidation)

	got, err := s.Users.Read(ctx, alice.Key)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	_, err = s.Users.Read(ctx, "u-nobody")
	requireCode(t, err, ErrNotFound)

	// Add is an upsert.
	require.NoError(t, s.Users.Add(ctx, User{Key: alice.Key, Name: "Alice B."}))
	got, err = s.Users.Read(ctx, alice.Key)
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.Name)
}

func TestUserReadMany(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	users, missing, err := s.Users.ReadMany(ctx, []string{alice.Key, "u-ghost", bob.Key})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"u-ghost"}, missing)
}

func TestUserList_ExcludesSelfAndFilters(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users.Add(ctx, User{Key: "u-z", Name: "Zoe", Email: "zoe@example.com"}))

	page, err := s.Users.List(ctx, alice, UserListOptions{})
	require.NoError(t, err)
	for _, u := range page.Items {
		assert.NotEqual(t, alice.Key, u.Key)
	}
	assert.Len(t, page.Items, 4)

	// Case-insensitive match on name.
	page, err = s.Users.List(ctx, alice, UserListOptions{Query: "zOe"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u-z", page.Items[0].Key)

	// And on email.
	page, err = s.Users.List(ctx, alice, UserListOptions{Query: "example.com"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestUserList_Pagination(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Users.List(ctx, alice, UserListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)

	second, err := s.Users.List(ctx, alice, UserListOptions{Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	for _, u := range second.Items {
		for _, prev := range first.Items {
			assert.NotEqual(t, prev.Key, u.Key)
		}
	}

	third, err := s.Users.List(ctx, alice, UserListOptions{Cursor: second.Cursor})
	require.NoError(t, err)
	assert.Empty(t, third.Items)
	assert.Equal(t, second.Cursor, third.Cursor)
}
