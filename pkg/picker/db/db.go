// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package db is the transactional write facade over the picker database. It
// is the only package that knows the storage schema; the sync controller
// writes through scoped WriteOperations and flips the cloud-authority switch
// that gates cloud rows out of queries.
package db

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/DataDog/picker-sync/pkg/util/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS media (
	authority     TEXT NOT NULL,
	id            TEXT NOT NULL,
	date_taken_ms INTEGER NOT NULL DEFAULT 0,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	mime_type     TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (authority, id)
);
CREATE TABLE IF NOT EXISTS album_media (
	authority     TEXT NOT NULL,
	album_id      TEXT NOT NULL,
	id            TEXT NOT NULL,
	date_taken_ms INTEGER NOT NULL DEFAULT 0,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	mime_type     TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (authority, album_id, id)
);
CREATE INDEX IF NOT EXISTS idx_media_date_taken ON media (date_taken_ms DESC);
`

// Facade is the picker database handle. Write operations are mutually
// exclusive (sqlite single-writer); the cloud-authority switch is independent
// of any open transaction.
type Facade struct {
	db             *sql.DB
	localAuthority string

	// mu guards cloudAuthority.
	mu             sync.Mutex
	cloudAuthority string
}

// Open opens (creating if needed) the picker database at path.
func Open(path, localAuthority string) (*Facade, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening picker db")
	}
	// A single connection keeps transactions strictly serialized and
	// avoids SQLITE_BUSY on concurrent writers.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "creating picker db schema")
	}

	return &Facade{db: sqlDB, localAuthority: localAuthority}, nil
}

// Close closes the database.
func (f *Facade) Close() error {
	return f.db.Close()
}

// SetCloudProvider atomically switches which cloud authority's rows are
// visible to queries. The empty string disables cloud rows entirely.
func (f *Facade) SetCloudProvider(authority string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cloudAuthority != authority {
		log.Debugf("db: cloud authority switch %q -> %q", f.cloudAuthority, authority)
	}
	f.cloudAuthority = authority
}

// CloudProvider returns the cloud authority whose rows are currently visible,
// or "" when cloud queries are disabled.
func (f *Facade) CloudProvider() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cloudAuthority
}

// LocalAuthority returns the authority of the local provider rows.
func (f *Facade) LocalAuthority() string {
	return f.localAuthority
}

// QueryMediaIDs returns the ids of all media rows visible to the picker UI:
// local rows plus the rows of the currently enabled cloud authority, newest
// first.
func (f *Facade) QueryMediaIDs() ([]string, error) {
	cloud := f.CloudProvider()

	rows, err := f.db.Query(
		`SELECT id FROM media WHERE authority = ? OR (? != '' AND authority = ?)
		 ORDER BY date_taken_ms DESC, id`,
		f.localAuthority, cloud, cloud)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountMedia returns the number of media rows stored for an authority,
// regardless of the cloud switch. Intended for diagnostics and tests.
func (f *Facade) CountMedia(authority string) (int, error) {
	var n int
	err := f.db.QueryRow(`SELECT COUNT(*) FROM media WHERE authority = ?`, authority).Scan(&n)
	return n, err
}

// CountAlbumMedia returns the number of album media rows stored for an
// authority and album.
func (f *Facade) CountAlbumMedia(authority, albumID string) (int, error) {
	var n int
	err := f.db.QueryRow(
		`SELECT COUNT(*) FROM album_media WHERE authority = ? AND album_id = ?`,
		authority, albumID).Scan(&n)
	return n, err
}
