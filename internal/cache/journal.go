package cache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const buildsBucket = "builds"

// Record is the provenance kept for one build. It mirrors an artifact but
// is never consulted to decide whether the artifact exists.
type Record struct {
	Key              string        `json:"key"`
	ToolchainVersion string        `json:"toolchain_version"`
	SourceBytes      int           `json:"source_bytes"`
	BuildDuration    time.Duration `json:"build_duration_ns"`
	CreatedAt        time.Time     `json:"created_at"`
	Hits             int           `json:"hits"`
}

// Journal stores build provenance in a bbolt database under the cache root.
// All operations are best effort from the runner's point of view: a broken
// or missing journal degrades observability, never correctness.
type Journal struct {
	db *bolt.DB
}

// OpenJournal opens (creating if needed) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(buildsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database file.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordBuild stores the record under its key, replacing any previous
// record for the same key.
func (j *Journal) RecordBuild(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}

	err = j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(buildsBucket)).Put([]byte(rec.Key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write journal record: %w", err)
	}

	return nil
}

// Touch increments the hit counter for key. Keys without a record are
// ignored; the artifact may predate the journal.
func (j *Journal) Touch(key Key) error {
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(buildsBucket))

		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal journal record: %w", err)
		}

		rec.Hits++

		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal journal record: %w", err)
		}

		return b.Put([]byte(key), updated)
	})
	if err != nil {
		return fmt.Errorf("failed to touch journal record: %w", err)
	}

	return nil
}

// Lookup returns the record for key, or nil when none exists.
func (j *Journal) Lookup(key Key) (*Record, error) {
	var rec *Record

	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(buildsBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}

		rec = &Record{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal record: %w", err)
	}

	return rec, nil
}

// Records returns every stored record in key order.
func (j *Journal) Records() ([]Record, error) {
	var records []Record

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(buildsBucket)).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}

			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal records: %w", err)
	}

	return records, nil
}

// Clear drops every record.
func (j *Journal) Clear() error {
	err := j.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(buildsBucket)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(buildsBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear journal: %w", err)
	}

	return nil
}
