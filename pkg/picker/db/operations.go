// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package db

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/DataDog/picker-sync/pkg/picker/provider"
	"github.com/DataDog/picker-sync/pkg/util/log"
)

// ErrInvalidOperation is returned by the Begin* methods when the requested
// write operation cannot be constructed (missing authority or album id). The
// sync engine aborts the run without touching persisted state when it sees it.
var ErrInvalidOperation = errors.New("invalid picker db write operation")

type opKind int

const (
	opAddMedia opKind = iota + 1
	opAddAlbumMedia
	opRemoveMedia
	opResetMedia
	opResetAlbumMedia
)

// WriteOperation is a scoped transactional write on the picker database.
// Usage is strictly begin / Execute / SetSuccess / Close: Close commits only
// if SetSuccess was called, otherwise it rolls the transaction back.
type WriteOperation struct {
	tx        *sql.Tx
	kind      opKind
	authority string
	albumID   string
	// localAuthority scopes empty-authority resets to non-local rows.
	localAuthority string
	success        bool
	closed         bool
}

// BeginAddMediaOperation starts an operation inserting media rows for the
// given authority.
func (f *Facade) BeginAddMediaOperation(authority string) (*WriteOperation, error) {
	if authority == "" {
		return nil, errors.Wrap(ErrInvalidOperation, "add media requires an authority")
	}
	return f.begin(opAddMedia, authority, "")
}

// BeginAddAlbumMediaOperation starts an operation inserting album media rows.
func (f *Facade) BeginAddAlbumMediaOperation(authority, albumID string) (*WriteOperation, error) {
	if authority == "" {
		return nil, errors.Wrap(ErrInvalidOperation, "add album media requires an authority")
	}
	if albumID == "" {
		return nil, errors.Wrap(ErrInvalidOperation, "add album media requires an album id")
	}
	return f.begin(opAddAlbumMedia, authority, albumID)
}

// BeginRemoveMediaOperation starts an operation deleting media rows by id.
func (f *Facade) BeginRemoveMediaOperation(authority string) (*WriteOperation, error) {
	if authority == "" {
		return nil, errors.Wrap(ErrInvalidOperation, "remove media requires an authority")
	}
	return f.begin(opRemoveMedia, authority, "")
}

// BeginResetMediaOperation starts an operation deleting all media rows for an
// authority. An empty authority resets every non-local row (a cloud reset
// after the provider was cleared).
func (f *Facade) BeginResetMediaOperation(authority string) (*WriteOperation, error) {
	return f.begin(opResetMedia, authority, "")
}

// BeginResetAlbumMediaOperation starts an operation deleting album media rows
// for an authority; an empty albumID deletes across all albums.
func (f *Facade) BeginResetAlbumMediaOperation(authority, albumID string) (*WriteOperation, error) {
	return f.begin(opResetAlbumMedia, authority, albumID)
}

func (f *Facade) begin(kind opKind, authority, albumID string) (*WriteOperation, error) {
	tx, err := f.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "beginning picker db transaction")
	}
	return &WriteOperation{
		tx:             tx,
		kind:           kind,
		authority:      authority,
		albumID:        albumID,
		localAuthority: f.localAuthority,
	}, nil
}

// Execute applies one page of rows. Reset operations take a nil page. It
// returns the number of rows written or deleted.
func (op *WriteOperation) Execute(page *provider.Page) (int, error) {
	switch op.kind {
	case opAddMedia:
		return op.addMedia(page)
	case opAddAlbumMedia:
		return op.addAlbumMedia(page)
	case opRemoveMedia:
		return op.removeMedia(page)
	case opResetMedia:
		return op.resetMedia()
	case opResetAlbumMedia:
		return op.resetAlbumMedia()
	default:
		return 0, errors.Wrapf(ErrInvalidOperation, "unknown operation kind %d", op.kind)
	}
}

// SetSuccess marks the operation for commit on Close.
func (op *WriteOperation) SetSuccess() {
	op.success = true
}

// Close commits the operation if SetSuccess was called, and rolls it back
// otherwise. Safe to call once; intended for defer.
func (op *WriteOperation) Close() error {
	if op.closed {
		return nil
	}
	op.closed = true
	if op.success {
		return op.tx.Commit()
	}
	if err := op.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		log.Warnf("db: rollback failed: %v", err) //nolint:errcheck
		return err
	}
	return nil
}

func (op *WriteOperation) addMedia(page *provider.Page) (int, error) {
	if page == nil {
		return 0, nil
	}
	stmt, err := op.tx.Prepare(
		`INSERT OR REPLACE INTO media
		 (authority, id, date_taken_ms, size_bytes, mime_type, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, row := range page.Rows {
		if _, err := stmt.Exec(op.authority, row.ID, row.DateTakenMs,
			row.SizeBytes, row.MimeType, row.Duration); err != nil {
			return 0, errors.Wrapf(err, "inserting media row %s", row.ID)
		}
	}
	return len(page.Rows), nil
}

func (op *WriteOperation) addAlbumMedia(page *provider.Page) (int, error) {
	if page == nil {
		return 0, nil
	}
	stmt, err := op.tx.Prepare(
		`INSERT OR REPLACE INTO album_media
		 (authority, album_id, id, date_taken_ms, size_bytes, mime_type, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, row := range page.Rows {
		if _, err := stmt.Exec(op.authority, op.albumID, row.ID, row.DateTakenMs,
			row.SizeBytes, row.MimeType, row.Duration); err != nil {
			return 0, errors.Wrapf(err, "inserting album media row %s", row.ID)
		}
	}
	return len(page.Rows), nil
}

func (op *WriteOperation) removeMedia(page *provider.Page) (int, error) {
	if page == nil {
		return 0, nil
	}
	stmt, err := op.tx.Prepare(`DELETE FROM media WHERE authority = ? AND id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	deleted := 0
	for _, row := range page.Rows {
		res, err := stmt.Exec(op.authority, row.ID)
		if err != nil {
			return 0, errors.Wrapf(err, "deleting media row %s", row.ID)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += int(n)
		}
	}
	return deleted, nil
}

func (op *WriteOperation) resetMedia() (int, error) {
	var (
		res sql.Result
		err error
	)
	if op.authority == "" {
		// Cloud reset after the provider was cleared: drop everything
		// that is not local.
		res, err = op.tx.Exec(`DELETE FROM media WHERE authority != ?`, op.localAuthority)
	} else {
		res, err = op.tx.Exec(`DELETE FROM media WHERE authority = ?`, op.authority)
	}
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (op *WriteOperation) resetAlbumMedia() (int, error) {
	var (
		res sql.Result
		err error
	)
	switch {
	case op.authority == "":
		res, err = op.tx.Exec(`DELETE FROM album_media WHERE authority != ?`, op.localAuthority)
	case op.albumID == "":
		res, err = op.tx.Exec(`DELETE FROM album_media WHERE authority = ?`, op.authority)
	default:
		res, err = op.tx.Exec(`DELETE FROM album_media WHERE authority = ? AND album_id = ?`,
			op.authority, op.albumID)
	}
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
