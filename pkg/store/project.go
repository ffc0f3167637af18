package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/keys"
)

// ProjectStore persists project media bodies: the full project document
// stored separately from its file metadata row. Access control rides on the
// file; the media row has no permission state of its own.
type ProjectStore struct {
	s *Store
}

// Read returns the media body of a project. Requires reader access on the
// project file.
func (p *ProjectStore) Read(ctx context.Context, key string, user User) (json.RawMessage, error) {
	start := time.Now()
	media, err := p.read(ctx, key, user)
	p.s.observe("projects", "read", start, err)
	return media, err
}

func (p *ProjectStore) read(ctx context.Context, key string, user User) (json.RawMessage, error) {
	if _, err := p.s.Files.CheckAccess(ctx, RoleReader, key, user); err != nil {
		return nil, err
	}
	data, err := p.s.kv.Get(ctx, keys.Media(key))
	if err == kv.ErrKeyNotFound {
		return nil, &StoreError{Code: ErrNotFound, Message: "Not found", Key: key}
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Update replaces the media body of a project. Requires writer access on
// the project file. The body must be valid JSON.
func (p *ProjectStore) Update(ctx context.Context, key string, media json.RawMessage, user User) error {
	start := time.Now()
	err := p.update(ctx, key, media, user)
	p.s.observe("projects", "update", start, err)
	return err
}

func (p *ProjectStore) update(ctx context.Context, key string, media json.RawMessage, user User) error {
	if !json.Valid(media) {
		return &StoreError{Code: ErrBadRequest, Message: "The media body is not valid JSON", Key: key}
	}
	if _, err := p.s.Files.CheckAccess(ctx, RoleWriter, key, user); err != nil {
		return err
	}
	if err := p.s.kv.Put(ctx, keys.Media(key), media); err != nil {
		return err
	}

	users, err := p.s.Files.FileUserIDs(ctx, key)
	if err != nil {
		return err
	}
	p.s.sink.Publish(Event{
		Type:      "event",
		Operation: OperationUpdated,
		Kind:      KindProject,
		ID:        key,
	}, Filter{URL: RouteFile(key), Users: p.s.eventUsers(users...)})
	return nil
}
