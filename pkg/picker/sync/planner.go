// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package sync

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/DataDog/picker-sync/pkg/picker/prefs"
	"github.com/DataDog/picker-sync/pkg/picker/provider"
	"github.com/DataDog/picker-sync/pkg/util/log"
)

type syncKind int

const (
	syncNone syncKind = iota
	syncIncremental
	syncFull
	syncReset
)

func (k syncKind) String() string {
	switch k {
	case syncNone:
		return "NONE"
	case syncIncremental:
		return "MEDIA_INCREMENTAL"
	case syncFull:
		return "MEDIA_FULL"
	case syncReset:
		return "MEDIA_RESET"
	default:
		return "UNKNOWN"
	}
}

// syncRequestParams is the planner's verdict for one provider.
type syncRequestParams struct {
	kind syncKind
	// syncGeneration is the generation to sync from; only valid for
	// syncIncremental.
	syncGeneration int64
	// latest is the provider's current collection info; only valid for
	// syncFull and syncIncremental.
	latest   provider.CollectionInfo
	pageSize int
}

func (p syncRequestParams) String() string {
	return fmt.Sprintf("syncRequestParams{type=%s, gen=%d, latest=%+v, pageSize=%d}",
		p.kind, p.syncGeneration, p.latest, p.pageSize)
}

// getSyncRequestParams plans a sync for the given provider. For cloud
// providers it re-checks, under the cloud-provider lock, that the authority
// is still the active one and fails with ErrRequestObsolete otherwise.
func (c *Controller) getSyncRequestParams(ctx context.Context, authority string, isLocal bool) (syncRequestParams, error) {
	if isLocal {
		return c.getSyncRequestParamsInternal(ctx, authority, isLocal)
	}

	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()
	if c.cloudProviderInfo.Authority != authority {
		return syncRequestParams{}, errors.Wrapf(ErrRequestObsolete,
			"planning for %q but current cloud provider is %q",
			authority, c.cloudProviderInfo.Authority)
	}
	return c.getSyncRequestParamsInternal(ctx, authority, isLocal)
}

func (c *Controller) getSyncRequestParamsInternal(ctx context.Context, authority string, isLocal bool) (syncRequestParams, error) {
	log.Debugf("getSyncRequestParams() %s, auth=%s", providerKind(isLocal), authority)

	if authority == "" {
		// Only the cloud authority can be empty: clean up leftovers.
		return syncRequestParams{kind: syncReset, pageSize: c.pageSize}, nil
	}

	p := c.registry.Lookup(authority)
	if p == nil {
		return syncRequestParams{}, errors.Errorf("provider %s is not installed", authority)
	}

	latest, err := p.MediaCollectionInfo(ctx)
	if err != nil {
		return syncRequestParams{}, errors.Wrapf(err, "fetching collection info from %s", authority)
	}
	log.Debugf("   latest ID/Gen=%s/%d", latest.MediaCollectionID, latest.LastMediaSyncGeneration)

	cached := c.getCachedMediaCollectionInfo(isLocal)
	log.Debugf("   cached ID/Gen=%s/%d", cached.MediaCollectionID, cached.LastMediaSyncGeneration)

	if latest.MediaCollectionID == "" || latest.LastMediaSyncGeneration < 0 {
		return syncRequestParams{}, illegalStatef(
			"unexpected latest media collection info: ID/Gen=%s/%d",
			latest.MediaCollectionID, latest.LastMediaSyncGeneration)
	}

	result := syncRequestParams{pageSize: c.pageSize, latest: latest}
	switch {
	case latest.MediaCollectionID != cached.MediaCollectionID:
		result.kind = syncFull
	case latest.LastMediaSyncGeneration == cached.LastMediaSyncGeneration:
		result.kind = syncNone
	default:
		result.kind = syncIncremental
		result.syncGeneration = cached.LastMediaSyncGeneration
	}
	log.Debugf("   result=%s", result)
	return result, nil
}

// getCachedMediaCollectionInfo reads the persisted sync cursor for a
// provider. Missing values yield the defaults ("" / -1).
func (c *Controller) getCachedMediaCollectionInfo(isLocal bool) provider.CollectionInfo {
	id, _ := c.prefs.GetString(prefs.SyncPrefs, prefsKey(isLocal, prefs.KeyMediaCollectionID))
	gen := c.prefs.GetInt64(prefs.SyncPrefs, prefsKey(isLocal, prefs.KeyLastMediaSyncGeneration))
	return provider.CollectionInfo{MediaCollectionID: id, LastMediaSyncGeneration: gen}
}

// cacheMediaCollectionInfo commits the latest collection info once a sync
// completed. A nil info clears the cursor and every resume token (resume
// tokens never outlive the collection they belong to). For cloud providers
// the write is skipped with ErrRequestObsolete if the authority is no longer
// the active one.
func (c *Controller) cacheMediaCollectionInfo(authority string, isLocal bool, info *provider.CollectionInfo) error {
	if authority == "" {
		log.Debugf("ignoring cache media info for empty authority")
		return nil
	}

	if isLocal {
		return c.cacheMediaCollectionInfoInternal(isLocal, info)
	}

	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()
	if c.cloudProviderInfo.Authority != authority {
		return errors.Wrapf(ErrRequestObsolete,
			"not caching collection info for %q: cloud provider changed to %q",
			authority, c.cloudProviderInfo.Authority)
	}
	return c.cacheMediaCollectionInfoInternal(isLocal, info)
}

func (c *Controller) cacheMediaCollectionInfoInternal(isLocal bool, info *provider.CollectionInfo) error {
	return c.prefs.Apply(prefs.SyncPrefs, func(e *prefs.Editor) {
		if info == nil {
			e.Remove(prefsKey(isLocal, prefs.KeyMediaCollectionID))
			e.Remove(prefsKey(isLocal, prefs.KeyLastMediaSyncGeneration))
			e.Remove(prefsKey(isLocal, prefs.KeyResumeMediaAdd))
			e.Remove(prefsKey(isLocal, prefs.KeyResumeAlbumAdd))
			e.Remove(prefsKey(isLocal, prefs.KeyResumeMediaRemove))
			return
		}
		e.PutString(prefsKey(isLocal, prefs.KeyMediaCollectionID), info.MediaCollectionID)
		e.PutInt64(prefsKey(isLocal, prefs.KeyLastMediaSyncGeneration), info.LastMediaSyncGeneration)
	})
}

func (c *Controller) resetCachedMediaCollectionInfo(authority string, isLocal bool) error {
	return c.cacheMediaCollectionInfo(authority, isLocal, nil)
}

func prefsKey(isLocal bool, key string) string {
	if isLocal {
		return prefs.LocalPrefix + key
	}
	return prefs.CloudPrefix + key
}

func providerKind(isLocal bool) string {
	if isLocal {
		return "LOCAL"
	}
	return "CLOUD"
}
