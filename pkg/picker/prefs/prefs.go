// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package prefs is the persisted key-value store behind the picker sync
// state: one BoltDB file holding two flat namespaces, the user prefs (which
// cloud provider is selected) and the sync prefs (per-provider collection
// cursors and resumable page tokens).
package prefs

import (
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/DataDog/picker-sync/pkg/util/log"
)

// The two namespaces. Each is a top-level bolt bucket.
const (
	UserPrefs = "picker_user_prefs"
	SyncPrefs = "picker_sync_prefs"
)

// Keys and key fragments used by the sync controller.
const (
	KeyCloudProviderAuthority = "cloud_provider_authority"

	LocalPrefix = "local_provider:"
	CloudPrefix = "cloud_provider:"

	KeyMediaCollectionID       = "media_collection_id"
	KeyLastMediaSyncGeneration = "last_media_sync_generation"
	KeyResumeMediaAdd          = "media_add:resume"
	KeyResumeAlbumAdd          = "album_add:resume"
	KeyResumeMediaRemove       = "media_remove:resume"
)

const openTimeout = 30 * time.Second

// Store is the preferences accessor. Reads never fail: missing values and
// read errors yield the documented defaults ("" for strings, -1 for int64s).
// Each Put/Remove/Apply call commits atomically.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the prefs file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, ns := range []string{UserPrefs, SyncPrefs} {
			if _, err := tx.CreateBucketIfNotExists([]byte(ns)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetString returns the value for key in ns, and whether it was present.
func (s *Store) GetString(ns, key string) (string, bool) {
	var val []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		val = tx.Bucket([]byte(ns)).Get([]byte(key))
		return nil
	})
	if err != nil {
		log.Warnf("prefs: read of %s/%s failed: %v", ns, key, err) //nolint:errcheck
		return "", false
	}
	if val == nil {
		return "", false
	}
	return string(val), true
}

// GetInt64 returns the value for key in ns, or -1 when absent or unparsable.
func (s *Store) GetInt64(ns, key string) int64 {
	raw, ok := s.GetString(ns, key)
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warnf("prefs: %s/%s holds non-numeric value %q", ns, key, raw) //nolint:errcheck
		return -1
	}
	return n
}

// PutString stores key=value in ns.
func (s *Store) PutString(ns, key, value string) error {
	return s.Apply(ns, func(e *Editor) {
		e.PutString(key, value)
	})
}

// PutInt64 stores key=value in ns.
func (s *Store) PutInt64(ns, key string, value int64) error {
	return s.Apply(ns, func(e *Editor) {
		e.PutInt64(key, value)
	})
}

// Remove deletes key from ns. Removing an absent key is a no-op.
func (s *Store) Remove(ns, key string) error {
	return s.Apply(ns, func(e *Editor) {
		e.Remove(key)
	})
}

// Editor batches edits applied in a single transaction.
type Editor struct {
	ops []func(b *bolt.Bucket) error
}

// PutString queues a string write.
func (e *Editor) PutString(key, value string) {
	e.ops = append(e.ops, func(b *bolt.Bucket) error {
		return b.Put([]byte(key), []byte(value))
	})
}

// PutInt64 queues an int64 write.
func (e *Editor) PutInt64(key string, value int64) {
	e.PutString(key, strconv.FormatInt(value, 10))
}

// Remove queues a delete.
func (e *Editor) Remove(key string) {
	e.ops = append(e.ops, func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	})
}

// Apply runs fn to collect edits against ns and commits them atomically.
func (s *Store) Apply(ns string, fn func(e *Editor)) error {
	e := &Editor{}
	fn(e)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		for _, op := range e.ops {
			if err := op(b); err != nil {
				return err
			}
		}
		return nil
	})
}
