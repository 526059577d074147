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

	"github.com/DataDog/picker-sync/pkg/picker/prefs"
	"github.com/DataDog/picker-sync/pkg/picker/provider"
)

func TestPlanFullSyncWhenNoCursor(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	params, err := c.getSyncRequestParams(context.Background(), cloudAuthority, false)
	require.NoError(t, err)
	assert.Equal(t, syncFull, params.kind)
	assert.Equal(t, "cloud-1", params.latest.MediaCollectionID)
}

func TestPlanNoneWhenGenerationMatches(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	info := env.cloud.Collection
	require.NoError(t, c.cacheMediaCollectionInfo(cloudAuthority, false, &info))

	params, err := c.getSyncRequestParams(context.Background(), cloudAuthority, false)
	require.NoError(t, err)
	assert.Equal(t, syncNone, params.kind)
}

func TestPlanIncrementalFromCachedGeneration(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	cached := provider.CollectionInfo{MediaCollectionID: "cloud-1", LastMediaSyncGeneration: 3}
	require.NoError(t, c.cacheMediaCollectionInfo(cloudAuthority, false, &cached))

	params, err := c.getSyncRequestParams(context.Background(), cloudAuthority, false)
	require.NoError(t, err)
	assert.Equal(t, syncIncremental, params.kind)
	assert.Equal(t, int64(3), params.syncGeneration)
	assert.Equal(t, int64(5), params.latest.LastMediaSyncGeneration)
}

func TestPlanFullSyncOnCollectionIDChange(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	cached := provider.CollectionInfo{MediaCollectionID: "stale-collection", LastMediaSyncGeneration: 5}
	require.NoError(t, c.cacheMediaCollectionInfo(cloudAuthority, false, &cached))

	params, err := c.getSyncRequestParams(context.Background(), cloudAuthority, false)
	require.NoError(t, err)
	assert.Equal(t, syncFull, params.kind)
}

func TestPlanResetOnEmptyAuthority(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller(t)

	params, err := c.getSyncRequestParams(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, syncReset, params.kind)
}

func TestPlanFailsOnInvalidCollectionInfo(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	env.cloud.Collection = provider.CollectionInfo{MediaCollectionID: "", LastMediaSyncGeneration: 5}
	_, err := c.getSyncRequestParams(context.Background(), cloudAuthority, false)
	assert.True(t, isStateError(err), "empty collection id must be a state error, got: %v", err)

	env.cloud.Collection = provider.CollectionInfo{MediaCollectionID: "cloud-1", LastMediaSyncGeneration: -1}
	_, err = c.getSyncRequestParams(context.Background(), cloudAuthority, false)
	assert.True(t, isStateError(err), "negative generation must be a state error, got: %v", err)
}

func TestPlanFailsWhenProviderNotInstalled(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller(t)

	_, err := c.getSyncRequestParams(context.Background(), provider.LocalAuthority, true)
	require.NoError(t, err)

	_, err = c.getSyncRequestParamsInternal(context.Background(), "com.gone.provider", true)
	assert.Error(t, err)
}

func TestPlanObsoleteWhenAuthorityChanged(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	_, err := c.getSyncRequestParams(context.Background(), otherAuthority, false)
	assert.ErrorIs(t, err, ErrRequestObsolete)
}

func TestCacheCollectionInfoObsoleteWhenAuthorityChanged(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	info := provider.CollectionInfo{MediaCollectionID: "x", LastMediaSyncGeneration: 1}
	err := c.cacheMediaCollectionInfo(otherAuthority, false, &info)
	assert.ErrorIs(t, err, ErrRequestObsolete)

	// The cursor stays untouched.
	cached := c.getCachedMediaCollectionInfo(false)
	assert.Equal(t, "", cached.MediaCollectionID)
	assert.Equal(t, int64(-1), cached.LastMediaSyncGeneration)
}

func TestClearingCursorDropsResumeTokens(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	info := provider.CollectionInfo{MediaCollectionID: "cloud-1", LastMediaSyncGeneration: 5}
	require.NoError(t, c.cacheMediaCollectionInfo(cloudAuthority, false, &info))
	require.NoError(t, env.store.PutString(prefs.SyncPrefs,
		prefs.CloudPrefix+prefs.KeyResumeMediaAdd, "p7"))

	require.NoError(t, c.resetCachedMediaCollectionInfo(cloudAuthority, false))

	cached := c.getCachedMediaCollectionInfo(false)
	assert.Equal(t, "", cached.MediaCollectionID)
	assert.Equal(t, int64(-1), cached.LastMediaSyncGeneration)
	_, ok := env.store.GetString(prefs.SyncPrefs, prefs.CloudPrefix+prefs.KeyResumeMediaAdd)
	assert.False(t, ok, "resume tokens must not outlive the collection cursor")
}

func TestCursorsAreScopedPerProvider(t *testing.T) {
	env := newTestEnv(t)
	env.registerCloud()
	c := env.controller(t)

	localInfo := provider.CollectionInfo{MediaCollectionID: "local-1", LastMediaSyncGeneration: 2}
	cloudInfo := provider.CollectionInfo{MediaCollectionID: "cloud-1", LastMediaSyncGeneration: 9}
	require.NoError(t, c.cacheMediaCollectionInfo(provider.LocalAuthority, true, &localInfo))
	require.NoError(t, c.cacheMediaCollectionInfo(cloudAuthority, false, &cloudInfo))

	assert.Equal(t, localInfo, c.getCachedMediaCollectionInfo(true))
	assert.Equal(t, cloudInfo, c.getCachedMediaCollectionInfo(false))

	require.NoError(t, c.resetCachedMediaCollectionInfo(provider.LocalAuthority, true))
	assert.Equal(t, cloudInfo, c.getCachedMediaCollectionInfo(false))
}
