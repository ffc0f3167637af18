// Package backup exports snapshots of the primary data namespaces. Snapshots
// cover the rows that cannot be rebuilt (files, lookups, permissions, history
// primaries, revisions, bin, users, media); secondary indexes are excluded
// because pkg/reindex reconstructs them from the primaries.
package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/api-client/net-store/internal/logger"
	"github.com/api-client/net-store/pkg/kv"
)

// Target receives a finished snapshot.
type Target interface {
	// Put stores the snapshot under name. The reader is fully consumed
	// before Put returns.
	Put(ctx context.Context, name string, data io.Reader) error
}

// primaryPrefixes lists the namespaces included in a snapshot.
var primaryPrefixes = []string{"f:", "fk:", "p:", "h:", "b:", "r:", "u:", "m:"}

// entry is one snapshot line: a key/value pair, base64 so arbitrary bytes
// survive the JSON framing.
type entry struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// Exporter writes snapshots of a key-value store to a target.
type Exporter struct {
	kv     kv.Store
	target Target
}

// NewExporter creates an exporter over an opened store.
func NewExporter(store kv.Store, target Target) *Exporter {
	return &Exporter{kv: store, target: target}
}

// Export writes one snapshot and returns its name. The snapshot is a gzip
// stream of JSON lines, one primary row per line.
//
// The export is not transactional across namespaces: rows written during the
// scan may or may not appear. That matches the store's consistency model:
// the snapshot is a restore point, not a point-in-time image.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	name := fmt.Sprintf("netstore-%s.ndjson.gz", time.Now().UTC().Format("20060102-150405"))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)

	rows := 0
	for _, prefix := range primaryPrefixes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		it, err := e.kv.Iterator(kv.IterOptions{Prefix: []byte(prefix)})
		if err != nil {
			return "", err
		}
		err = func() error {
			defer it.Close()
			for it.Next() {
				value, err := it.Value()
				if err != nil {
					return err
				}
				line := entry{
					Key:   base64.StdEncoding.EncodeToString(it.Key()),
					Value: base64.StdEncoding.EncodeToString(value),
				}
				if err := enc.Encode(&line); err != nil {
					return err
				}
				rows++
			}
			return nil
		}()
		if err != nil {
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", err
	}
	if err := e.target.Put(ctx, name, &buf); err != nil {
		return "", err
	}

	logger.Info("backup: exported %d rows to %s", rows, name)
	return name, nil
}

// restoreBatchSize bounds the rows written per batch during restore.
const restoreBatchSize = 500

// Restore loads a snapshot stream back into the store. Existing rows with
// the same keys are overwritten; rows absent from the snapshot are left
// alone. Run pkg/reindex afterwards to rebuild the secondary indexes.
func (e *Exporter) Restore(ctx context.Context, snapshot io.Reader) error {
	zr, err := gzip.NewReader(snapshot)
	if err != nil {
		return fmt.Errorf("backup: invalid snapshot stream: %w", err)
	}
	defer zr.Close()

	dec := json.NewDecoder(bufio.NewReader(zr))
	var ops []kv.Op
	restored := 0

	flush := func() error {
		if len(ops) == 0 {
			return nil
		}
		if err := e.kv.Batch(ctx, ops); err != nil {
			return err
		}
		restored += len(ops)
		ops = ops[:0]
		return nil
	}

	for {
		var line entry
		if err := dec.Decode(&line); err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("backup: corrupt snapshot line: %w", err)
		}
		key, err := base64.StdEncoding.DecodeString(line.Key)
		if err != nil {
			return fmt.Errorf("backup: corrupt snapshot key: %w", err)
		}
		value, err := base64.StdEncoding.DecodeString(line.Value)
		if err != nil {
			return fmt.Errorf("backup: corrupt snapshot value: %w", err)
		}
		ops = append(ops, kv.Op{Type: kv.OpPut, Key: key, Value: value})
		if len(ops) >= restoreBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("backup: restored %d rows", restored)
	return nil
}
