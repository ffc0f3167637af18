package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-client/net-store/pkg/kv"
)

func TestGetPutDelete(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, []byte("a"))
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	require.NoError(t, s.Put(ctx, []byte("a"), []byte("1")))
	value, err := s.Get(ctx, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)

	require.NoError(t, s.Put(ctx, []byte("a"), []byte("2")))
	value, err = s.Get(ctx, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)

	require.NoError(t, s.Delete(ctx, []byte("a")))
	_, err = s.Get(ctx, []byte("a"))
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	// Deleting an absent key succeeds.
	require.NoError(t, s.Delete(ctx, []byte("a")))
}

func TestGetMany(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []byte("a"), []byte("1")))
	require.NoError(t, s.Put(ctx, []byte("c"), []byte("3")))

	values, err := s.GetMany(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, []byte("1"), values[0])
	assert.Nil(t, values[1])
	assert.Equal(t, []byte("3"), values[2])
}

func TestBatch(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []byte("drop"), []byte("x")))
	err := s.Batch(ctx, []kv.Op{
		{Type: kv.OpPut, Key: []byte("a"), Value: []byte("1")},
		{Type: kv.OpPut, Key: []byte("b"), Value: []byte("2")},
		{Type: kv.OpDelete, Key: []byte("drop")},
	})
	require.NoError(t, err)

	value, err := s.Get(ctx, []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
	_, err = s.Get(ctx, []byte("drop"))
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func collect(t *testing.T, it kv.Iterator) []string {
	t.Helper()
	defer it.Close()
	var out []string
	for it.Next() {
		out = append(out, string(it.Key()))
	}
	return out
}

func TestIteratorOrderAndBounds(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	for _, k := range []string{"p:3", "p:1", "q:1", "p:2", "o:9"} {
		require.NoError(t, s.Put(ctx, []byte(k), []byte(k)))
	}

	it, err := s.Iterator(kv.IterOptions{Prefix: []byte("p:")})
	require.NoError(t, err)
	assert.Equal(t, []string{"p:1", "p:2", "p:3"}, collect(t, it))

	it, err = s.Iterator(kv.IterOptions{Prefix: []byte("p:"), Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"p:3", "p:2", "p:1"}, collect(t, it))

	it, err = s.Iterator(kv.IterOptions{GTE: []byte("p:2"), LTE: []byte("q:1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"p:2", "p:3", "q:1"}, collect(t, it))
}

func TestIteratorSeekIsStrictlyAfter(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		key := fmt.Sprintf("k:%d", i)
		require.NoError(t, s.Put(ctx, []byte(key), []byte(key)))
	}

	// Forward: seeking to an existing key resumes after it.
	it, err := s.Iterator(kv.IterOptions{Prefix: []byte("k:")})
	require.NoError(t, err)
	it.Seek([]byte("k:3"))
	assert.Equal(t, []string{"k:4", "k:5"}, collect(t, it))

	// Forward: seeking to a deleted boundary key resumes at the same spot.
	it, err = s.Iterator(kv.IterOptions{Prefix: []byte("k:")})
	require.NoError(t, err)
	it.Seek([]byte("k:30"))
	assert.Equal(t, []string{"k:4", "k:5"}, collect(t, it))

	// Reverse: seeking resumes strictly before the boundary.
	it, err = s.Iterator(kv.IterOptions{Prefix: []byte("k:"), Reverse: true})
	require.NoError(t, err)
	it.Seek([]byte("k:3"))
	assert.Equal(t, []string{"k:2", "k:1"}, collect(t, it))
}

func TestIteratorSnapshotSurvivesWrites(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []byte("a"), []byte("1")))
	require.NoError(t, s.Put(ctx, []byte("b"), []byte("2")))

	it, err := s.Iterator(kv.IterOptions{})
	require.NoError(t, err)
	defer it.Close()

	require.NoError(t, s.Put(ctx, []byte("c"), []byte("3")))
	require.NoError(t, s.Delete(ctx, []byte("b")))

	require.True(t, it.Next())
	assert.Equal(t, "a", string(it.Key()))

	// The snapshot still walks to b, but its value reads as absent.
	require.True(t, it.Next())
	assert.Equal(t, "b", string(it.Key()))
	_, err = it.Value()
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	// c arrived after the snapshot and is not visited.
	assert.False(t, it.Next())
}

func TestClear(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []byte("a"), []byte("1")))
	require.NoError(t, s.Clear(ctx))
	_, err := s.Get(ctx, []byte("a"))
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestClosedStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Close())

	_, err := s.Get(ctx, []byte("a"))
	assert.ErrorIs(t, err, kv.ErrStoreClosed)
	assert.ErrorIs(t, s.Put(ctx, []byte("a"), nil), kv.ErrStoreClosed)
	_, err = s.Iterator(kv.IterOptions{})
	assert.ErrorIs(t, err, kv.ErrStoreClosed)
}
