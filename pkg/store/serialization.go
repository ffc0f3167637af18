package store

import (
	"encoding/json"
	"fmt"
)

// All domain rows are stored as JSON. Rows are small documents, schema
// evolution matters more than raw codec speed, and JSON keeps the database
// debuggable with plain tooling. Secondary-index rows store raw key bytes,
// not JSON.

func encodeFile(f *File) ([]byte, error) {
	// Transient fields never hit the database.
	clone := f.Clone()
	clone.Permissions = nil
	clone.Capabilities = nil
	clone.LastModified.ByMe = false

	data, err := json.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file %s: %w", f.Key, err)
	}
	return data, nil
}

func decodeFile(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return &f, nil
}

func encodePermission(p *Permission) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode permission %s: %w", p.Key, err)
	}
	return data, nil
}

func decodePermission(data []byte) (*Permission, error) {
	var p Permission
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode permission: %w", err)
	}
	return &p, nil
}

func encodeSharedLink(l *SharedLink) ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shared link %s: %w", l.ID, err)
	}
	return data, nil
}

func decodeSharedLink(data []byte) (*SharedLink, error) {
	var l SharedLink
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to decode shared link: %w", err)
	}
	return &l, nil
}

func encodeHistory(h *HttpHistory) ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history %s: %w", h.Key, err)
	}
	return data, nil
}

func decodeHistory(data []byte) (*HttpHistory, error) {
	var h HttpHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &h, nil
}

func encodeRevision(r *Revision) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode revision %s: %w", r.Key, err)
	}
	return data, nil
}

func decodeRevision(data []byte) (*Revision, error) {
	var r Revision
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode revision: %w", err)
	}
	return &r, nil
}

func encodeBinEntry(b *BinEntry) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bin entry %s: %w", b.Key, err)
	}
	return data, nil
}

func decodeBinEntry(data []byte) (*BinEntry, error) {
	var b BinEntry
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode bin entry: %w", err)
	}
	return &b, nil
}

func encodeUser(u *User) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user %s: %w", u.Key, err)
	}
	return data, nil
}

func decodeUser(data []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &u, nil
}
