package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectMediaRoundTrip(t *testing.T) {
	s, sink := newTestStore(t)
	ctx := context.Background()

	mustAddSpace(t, s, "pm-space", alice)
	mustAddChild(t, s, "pm-proj", KindProject, "pm-space", alice)

	media := json.RawMessage(`{"kind":"project","requests":[{"url":"https://x"}]}`)
	require.NoError(t, s.Projects.Update(ctx, "pm-proj", media, alice))

	got, err := s.Projects.Read(ctx, "pm-proj", alice)
	require.NoError(t, err)
	assert.JSONEq(t, string(media), string(got))

	// An updated event went out on the file route.
	var sawUpdate bool
	for _, ev := range sink.Events() {
		if ev.Event.Operation == OperationUpdated && ev.Filter.URL == RouteFile("pm-proj") {
			sawUpdate = true
			assert.Equal(t, KindProject, ev.Event.Kind)
		}
	}
	assert.True(t, sawUpdate)
}

func TestProjectMediaAccess(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustAddSpace(t, s, "pa-space", alice)
	mustAddChild(t, s, "pa-proj", KindProject, "pa-space", alice)
	require.NoError(t, s.Projects.Update(ctx, "pa-proj", json.RawMessage(`{}`), alice))
	mustShare(t, s, "pa-proj", bob, RoleReader, alice)

	// Readers can read but not write.
	_, err := s.Projects.Read(ctx, "pa-proj", bob)
	require.NoError(t, err)
	err = s.Projects.Update(ctx, "pa-proj", json.RawMessage(`{}`), bob)
	requireCode(t, err, ErrForbidden)

	// Strangers cannot tell the project exists.
	_, err = s.Projects.Read(ctx, "pa-proj", carol)
	requireCode(t, err, ErrNotFound)
}

func TestProjectMediaValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustAddSpace(t, s, "pv-space", alice)
	mustAddChild(t, s, "pv-proj", KindProject, "pv-space", alice)

	err := s.Projects.Update(ctx, "pv-proj", json.RawMessage(`{broken`), alice)
	requireCode(t, err, ErrBadRequest)

	// A project without a media body reads as absent.
	_, err = s.Projects.Read(ctx, "pv-proj", alice)
	requireCode(t, err, ErrNotFound)
}
