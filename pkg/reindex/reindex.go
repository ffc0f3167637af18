// Package reindex rebuilds the derived namespaces from the primary rows:
// the four history secondary indexes from the h: primaries, and the
// shared-links rows from files plus their permission records. It is the
// offline repair path for the store's best-effort index writes. Run it
// after a restore or whenever index drift is suspected.
package reindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/api-client/net-store/internal/logger"
	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store"
	"github.com/api-client/net-store/pkg/store/keys"
)

// derivedPrefixes are the namespaces dropped and rebuilt by a run.
var derivedPrefixes = []string{"hs:", "hp:", "hr:", "ha:", "s:"}

// batchSize bounds the operations per write batch.
const batchSize = 500

// Report summarizes one rebuild run.
type Report struct {
	// HistoryRows is the number of live history primaries scanned.
	HistoryRows int

	// IndexRows is the number of history index rows written.
	IndexRows int

	// SharedLinks is the number of shared-link rows written.
	SharedLinks int

	// Skipped counts primaries that could not be indexed (undecodable or
	// malformed keys). They are logged and left in place.
	Skipped int
}

// Rebuilder rebuilds derived rows over an opened key-value store. The store
// must not serve writes while a rebuild runs.
type Rebuilder struct {
	kv kv.Store
}

// New creates a rebuilder.
func New(store kv.Store) *Rebuilder {
	return &Rebuilder{kv: store}
}

// Run drops every derived row and rebuilds them from the primaries.
func (r *Rebuilder) Run(ctx context.Context) (*Report, error) {
	if err := r.dropDerived(ctx); err != nil {
		return nil, err
	}

	report := &Report{}
	if err := r.rebuildHistory(ctx, report); err != nil {
		return nil, err
	}
	if err := r.rebuildSharedLinks(ctx, report); err != nil {
		return nil, err
	}

	logger.Info("reindex: %d history rows -> %d index rows, %d shared links, %d skipped",
		report.HistoryRows, report.IndexRows, report.SharedLinks, report.Skipped)
	return report, nil
}

// dropDerived deletes every row under the derived namespaces.
func (r *Rebuilder) dropDerived(ctx context.Context) error {
	for _, prefix := range derivedPrefixes {
		it, err := r.kv.Iterator(kv.IterOptions{Prefix: []byte(prefix)})
		if err != nil {
			return err
		}

		var stale [][]byte
		func() {
			defer it.Close()
			for it.Next() {
				stale = append(stale, append([]byte{}, it.Key()...))
			}
		}()

		for start := 0; start < len(stale); start += batchSize {
			end := start + batchSize
			if end > len(stale) {
				end = len(stale)
			}
			ops := make([]kv.Op, 0, end-start)
			for _, key := range stale[start:end] {
				ops = append(ops, kv.Op{Type: kv.OpDelete, Key: key})
			}
			if err := r.kv.Batch(ctx, ops); err != nil {
				return err
			}
		}
	}
	return nil
}

// rebuildHistory scans the h: primaries and rewrites the app, space,
// project, and request indexes for live records.
func (r *Rebuilder) rebuildHistory(ctx context.Context, report *Report) error {
	it, err := r.kv.Iterator(kv.IterOptions{Prefix: []byte("h:")})
	if err != nil {
		return err
	}
	defer it.Close()

	var ops []kv.Op
	flush := func() error {
		if len(ops) == 0 {
			return nil
		}
		if err := r.kv.Batch(ctx, ops); err != nil {
			return err
		}
		ops = ops[:0]
		return nil
	}

	for it.Next() {
		value, err := it.Value()
		if err != nil {
			return err
		}
		rawKey := strings.TrimPrefix(string(it.Key()), "h:")

		var record store.HttpHistory
		if err := json.Unmarshal(value, &record); err != nil {
			logger.Warn("reindex: undecodable history row %q: %v", rawKey, err)
			report.Skipped++
			continue
		}
		if record.Deleted {
			continue
		}

		created, nonce, user, err := splitHistoryKey(rawKey)
		if err != nil {
			logger.Warn("reindex: %v", err)
			report.Skipped++
			continue
		}
		report.HistoryRows++

		pointer := []byte(rawKey)
		before := len(ops)
		if record.App != "" {
			ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistoryApp(record.App, user, created, nonce), Value: pointer})
		}
		if record.Space != "" {
			ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistorySpace(record.Space, created, nonce), Value: pointer})
		}
		if record.Project != "" {
			ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistoryProject(record.Space, record.Project, created, nonce), Value: pointer})
		}
		if record.Request != "" {
			ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistoryRequest(record.Space, record.Request, created, nonce), Value: pointer})
		}
		report.IndexRows += len(ops) - before

		if len(ops) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// rebuildSharedLinks scans files, loads their permission records, and
// rewrites one s: link per live user grant.
func (r *Rebuilder) rebuildSharedLinks(ctx context.Context, report *Report) error {
	it, err := r.kv.Iterator(kv.IterOptions{Prefix: []byte("f:")})
	if err != nil {
		return err
	}
	defer it.Close()

	var ops []kv.Op
	flush := func() error {
		if len(ops) == 0 {
			return nil
		}
		if err := r.kv.Batch(ctx, ops); err != nil {
			return err
		}
		ops = ops[:0]
		return nil
	}

	for it.Next() {
		value, err := it.Value()
		if err != nil {
			return err
		}
		var file store.File
		if err := json.Unmarshal(value, &file); err != nil {
			logger.Warn("reindex: undecodable file row %q: %v", it.Key(), err)
			report.Skipped++
			continue
		}
		if file.Deleted || len(file.PermissionIDs) == 0 {
			continue
		}

		rowKeys := make([][]byte, len(file.PermissionIDs))
		for i, id := range file.PermissionIDs {
			rowKeys[i] = keys.Permission(id)
		}
		rows, err := r.kv.GetMany(ctx, rowKeys)
		if err != nil {
			return err
		}

		parent := ""
		if len(file.Parents) > 0 {
			parent = file.Parents[len(file.Parents)-1]
		}

		for i, row := range rows {
			if row == nil {
				logger.Warn("reindex: file %q references missing permission %q", file.Key, file.PermissionIDs[i])
				continue
			}
			var permission store.Permission
			if err := json.Unmarshal(row, &permission); err != nil {
				report.Skipped++
				continue
			}
			if permission.Type != store.PermissionUser {
				continue
			}

			link := store.SharedLink{ID: file.Key, Kind: file.Kind, UID: permission.Owner, Parent: parent}
			data, err := json.Marshal(&link)
			if err != nil {
				return err
			}
			ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.SharedLink(file.Kind, permission.Owner, file.Key), Value: data})
			report.SharedLinks++

			if len(ops) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

// splitHistoryKey parses a raw primary history key into its creation time,
// nonce, and owning user.
func splitHistoryKey(rawKey string) (time.Time, string, string, error) {
	parts := strings.Split(rawKey, keys.Sep)
	if len(parts) != 4 || parts[0] != "" {
		return time.Time{}, "", "", fmt.Errorf("malformed history key %q", rawKey)
	}
	created, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, "", "", fmt.Errorf("malformed timestamp in history key %q: %w", rawKey, err)
	}
	return created, parts[3], parts[2], nil
}
