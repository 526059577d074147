// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/picker-sync/pkg/picker/provider"
)

const (
	localAuth = "local.media"
	cloudAuth = "cloud.a"
)

func openFacade(t *testing.T) *Facade {
	f, err := Open(filepath.Join(t.TempDir(), "picker.db"), localAuth)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func addMedia(t *testing.T, f *Facade, authority string, rows ...provider.MediaRow) {
	op, err := f.BeginAddMediaOperation(authority)
	require.NoError(t, err)
	defer op.Close()

	n, err := op.Execute(&provider.Page{Rows: rows})
	require.NoError(t, err)
	require.Equal(t, len(rows), n)
	op.SetSuccess()
	require.NoError(t, op.Close())
}

func TestAddMediaCommit(t *testing.T) {
	f := openFacade(t)
	addMedia(t, f, localAuth,
		provider.MediaRow{ID: "m1", DateTakenMs: 100},
		provider.MediaRow{ID: "m2", DateTakenMs: 200})

	n, err := f.CountMedia(localAuth)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCloseWithoutSuccessRollsBack(t *testing.T) {
	f := openFacade(t)

	op, err := f.BeginAddMediaOperation(localAuth)
	require.NoError(t, err)
	_, err = op.Execute(&provider.Page{Rows: []provider.MediaRow{{ID: "m1"}}})
	require.NoError(t, err)
	require.NoError(t, op.Close())

	n, err := f.CountMedia(localAuth)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemoveMedia(t *testing.T) {
	f := openFacade(t)
	addMedia(t, f, cloudAuth,
		provider.MediaRow{ID: "m1"}, provider.MediaRow{ID: "m2"})

	op, err := f.BeginRemoveMediaOperation(cloudAuth)
	require.NoError(t, err)
	defer op.Close()
	n, err := op.Execute(&provider.Page{Rows: []provider.MediaRow{{ID: "m1"}, {ID: "missing"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	op.SetSuccess()
	require.NoError(t, op.Close())

	count, err := f.CountMedia(cloudAuth)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestResetMediaScopedByAuthority(t *testing.T) {
	f := openFacade(t)
	addMedia(t, f, localAuth, provider.MediaRow{ID: "l1"})
	addMedia(t, f, cloudAuth, provider.MediaRow{ID: "c1"})

	op, err := f.BeginResetMediaOperation(cloudAuth)
	require.NoError(t, err)
	defer op.Close()
	_, err = op.Execute(nil)
	require.NoError(t, err)
	op.SetSuccess()
	require.NoError(t, op.Close())

	localCount, _ := f.CountMedia(localAuth)
	cloudCount, _ := f.CountMedia(cloudAuth)
	assert.Equal(t, 1, localCount)
	assert.Zero(t, cloudCount)
}

func TestResetMediaEmptyAuthorityLeavesLocal(t *testing.T) {
	f := openFacade(t)
	addMedia(t, f, localAuth, provider.MediaRow{ID: "l1"})
	addMedia(t, f, cloudAuth, provider.MediaRow{ID: "c1"})

	op, err := f.BeginResetMediaOperation("")
	require.NoError(t, err)
	defer op.Close()
	_, err = op.Execute(nil)
	require.NoError(t, err)
	op.SetSuccess()
	require.NoError(t, op.Close())

	localCount, _ := f.CountMedia(localAuth)
	cloudCount, _ := f.CountMedia(cloudAuth)
	assert.Equal(t, 1, localCount)
	assert.Zero(t, cloudCount)
}

func TestAlbumMediaOperations(t *testing.T) {
	f := openFacade(t)

	op, err := f.BeginAddAlbumMediaOperation(cloudAuth, "album1")
	require.NoError(t, err)
	_, err = op.Execute(&provider.Page{Rows: []provider.MediaRow{{ID: "a1"}, {ID: "a2"}}})
	require.NoError(t, err)
	op.SetSuccess()
	require.NoError(t, op.Close())

	n, err := f.CountAlbumMedia(cloudAuth, "album1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reset, err := f.BeginResetAlbumMediaOperation(cloudAuth, "album1")
	require.NoError(t, err)
	_, err = reset.Execute(nil)
	require.NoError(t, err)
	reset.SetSuccess()
	require.NoError(t, reset.Close())

	n, err = f.CountAlbumMedia(cloudAuth, "album1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBeginValidation(t *testing.T) {
	f := openFacade(t)

	_, err := f.BeginAddMediaOperation("")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = f.BeginAddAlbumMediaOperation(cloudAuth, "")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = f.BeginRemoveMediaOperation("")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestCloudAuthoritySwitchGatesQueries(t *testing.T) {
	f := openFacade(t)
	addMedia(t, f, localAuth, provider.MediaRow{ID: "l1", DateTakenMs: 10})
	addMedia(t, f, cloudAuth, provider.MediaRow{ID: "c1", DateTakenMs: 20})

	ids, err := f.QueryMediaIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, ids)

	f.SetCloudProvider(cloudAuth)
	ids, err = f.QueryMediaIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "l1"}, ids)

	f.SetCloudProvider("")
	ids, err = f.QueryMediaIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, ids)
}
