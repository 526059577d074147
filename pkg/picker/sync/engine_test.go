// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/picker-sync/pkg/picker/notify"
	"github.com/DataDog/picker-sync/pkg/picker/prefs"
	"github.com/DataDog/picker-sync/pkg/picker/provider"
)

func TestPagedSyncResumesFromPersistedToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	env.cloud.Media = mediaRows("c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8")
	env.cloud.PageSize = 3

	// A previous run committed the first page and crashed.
	resumeKey := prefs.CloudPrefix + prefs.KeyResumeMediaAdd
	require.NoError(t, env.store.PutString(prefs.SyncPrefs, resumeKey, "p1"))

	err := c.executeSyncAdd(context.Background(), cloudAuthority, false,
		"cloud-1", false, false, provider.QueryArgs{})
	require.NoError(t, err)

	// Only the remaining pages were written.
	count, dbErr := env.facade.CountMedia(cloudAuthority)
	require.NoError(t, dbErr)
	assert.Equal(t, 5, count)
	assert.Equal(t, 2, env.cloud.Calls)

	// The checkpoint is cleared once the run completes.
	_, ok := env.store.GetString(prefs.SyncPrefs, resumeKey)
	assert.False(t, ok)
}

func TestPagedSyncCheckpointSurvivesMidRunFailure(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	env.cloud.Media = mediaRows("c1", "c2", "c3", "c4")
	env.cloud.PageSize = 2
	env.cloud.RepeatToken = "p1"

	err := c.executeSyncAdd(context.Background(), cloudAuthority, false,
		"cloud-1", false, false, provider.QueryArgs{})
	require.Error(t, err)
	assert.True(t, isStateError(err))

	// The first page committed before the failure, and its checkpoint too.
	count, dbErr := env.facade.CountMedia(cloudAuthority)
	require.NoError(t, dbErr)
	assert.Equal(t, 2, count)
	token, ok := env.store.GetString(prefs.SyncPrefs, prefs.CloudPrefix+prefs.KeyResumeMediaAdd)
	assert.True(t, ok)
	assert.Equal(t, "p1", token)
}

func TestPagedSyncFailsOnUnknownProvider(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller(t)

	err := c.executeSyncAdd(context.Background(), "com.gone.provider", false,
		"", false, false, provider.QueryArgs{})
	assert.Error(t, err)
}

func TestPagedSyncNotifiesObservers(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	ch := env.hub.Subscribe(notify.InternalBase + "/update/media")
	defer env.hub.Unsubscribe(ch)

	env.cloud.Media = mediaRows("c1", "c2")
	require.NoError(t, c.SyncAllMediaFromCloudProvider(context.Background()))

	select {
	case uri := <-ch:
		assert.Contains(t, uri, notify.InternalBase+"/update/media/")
	default:
		t.Fatal("expected a media update notification")
	}
}

func TestPagedSyncNoNotificationForEmptyPage(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	ch := env.hub.Subscribe(notify.InternalBase + "/update/media")
	defer env.hub.Unsubscribe(ch)

	require.NoError(t, c.SyncAllMediaFromCloudProvider(context.Background()))

	select {
	case uri := <-ch:
		t.Fatalf("unexpected notification for a sync that wrote nothing: %s", uri)
	default:
	}
}

func TestValidatePage(t *testing.T) {
	valid := func() *provider.Page {
		return &provider.Page{
			MediaCollectionID: "col-1",
			HonoredArgs:       []string{provider.ArgAlbumID, provider.ArgSyncGeneration},
			NextPageToken:     "p1",
		}
	}

	t.Run("ok", func(t *testing.T) {
		seen := map[string]struct{}{}
		next, err := validatePage(valid(), "col-1", []string{provider.ArgSyncGeneration}, seen)
		require.NoError(t, err)
		assert.Equal(t, "p1", next)
	})

	t.Run("nil page", func(t *testing.T) {
		_, err := validatePage(nil, "", nil, map[string]struct{}{})
		assert.True(t, isStateError(err))
	})

	t.Run("missing collection id", func(t *testing.T) {
		page := valid()
		page.MediaCollectionID = ""
		_, err := validatePage(page, "", nil, map[string]struct{}{})
		assert.True(t, isStateError(err))
	})

	t.Run("mismatched collection id", func(t *testing.T) {
		_, err := validatePage(valid(), "col-2", nil, map[string]struct{}{})
		assert.True(t, isStateError(err))
	})

	t.Run("unhonored arg", func(t *testing.T) {
		_, err := validatePage(valid(), "col-1", []string{provider.ArgPageSize}, map[string]struct{}{})
		assert.True(t, isStateError(err))
	})

	t.Run("repeated token", func(t *testing.T) {
		seen := map[string]struct{}{}
		_, err := validatePage(valid(), "col-1", nil, seen)
		require.NoError(t, err)
		_, err = validatePage(valid(), "col-1", nil, seen)
		assert.True(t, isStateError(err))
	})
}

func TestRememberNextPageToken(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller(t)

	key := prefs.LocalPrefix + prefs.KeyResumeMediaAdd
	require.NoError(t, c.rememberNextPageToken("p3", key))
	assert.Equal(t, "p3", c.pageTokenFromResumeKey(key))

	require.NoError(t, c.rememberNextPageToken("", key))
	assert.Equal(t, "", c.pageTokenFromResumeKey(key))
}
