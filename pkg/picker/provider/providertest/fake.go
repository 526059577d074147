// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package providertest provides an in-memory media provider for tests.
package providertest

import (
	"context"
	"strconv"
	"sync"

	"github.com/DataDog/picker-sync/pkg/picker/provider"
)

// Fake is a scriptable in-memory provider. Pages are served from the Media
// and Deleted slices, split by PageSize (or the caller's page size when
// smaller); tokens are "p1", "p2", ...
//
// All fields are safe to mutate between sync runs; a run snapshots nothing.
type Fake struct {
	mu sync.Mutex

	Collection provider.CollectionInfo
	Media      []provider.MediaRow
	Deleted    []provider.MediaRow

	// PageSize is the fake's own page split, independent of the requested
	// one. Zero means everything in one page.
	PageSize int

	// HonorOverride, when non-nil, replaces the honored args reported on
	// every page (used to simulate providers ignoring sync_generation).
	HonorOverride []string

	// RepeatToken makes every page report the same next-page token,
	// simulating a paging cycle.
	RepeatToken string

	// CollectionInfoErr fails MediaCollectionInfo when set.
	CollectionInfoErr error
	// QueryErr fails QueryMedia/QueryDeletedMedia when set.
	QueryErr error

	// Calls counts QueryMedia + QueryDeletedMedia invocations.
	Calls int
}

// MediaCollectionInfo implements provider.Provider.
func (f *Fake) MediaCollectionInfo(context.Context) (provider.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CollectionInfoErr != nil {
		return provider.CollectionInfo{}, f.CollectionInfoErr
	}
	return f.Collection, nil
}

// QueryMedia implements provider.Provider.
func (f *Fake) QueryMedia(_ context.Context, args provider.QueryArgs) (*provider.Page, error) {
	return f.page(f.Media, args)
}

// QueryDeletedMedia implements provider.Provider.
func (f *Fake) QueryDeletedMedia(_ context.Context, args provider.QueryArgs) (*provider.Page, error) {
	return f.page(f.Deleted, args)
}

func (f *Fake) page(rows []provider.MediaRow, args provider.QueryArgs) (*provider.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls++
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}

	size := f.PageSize
	if size <= 0 {
		size = len(rows)
	}
	if args.PageSize > 0 && args.PageSize < size {
		size = args.PageSize
	}

	start := 0
	if args.PageToken != "" {
		n, err := strconv.Atoi(args.PageToken[1:])
		if err != nil {
			return nil, err
		}
		start = n * size
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := start + size
	if size == 0 || end > len(rows) {
		end = len(rows)
	}

	page := &provider.Page{
		Rows:              rows[start:end],
		MediaCollectionID: f.Collection.MediaCollectionID,
		HonoredArgs:       f.honored(args),
	}
	if end < len(rows) {
		page.NextPageToken = "p" + strconv.Itoa(end/size)
	}
	if f.RepeatToken != "" {
		page.NextPageToken = f.RepeatToken
	}
	return page, nil
}

func (f *Fake) honored(args provider.QueryArgs) []string {
	if f.HonorOverride != nil {
		return f.HonorOverride
	}
	honored := []string{provider.ArgAlbumID}
	if args.PageSize > 0 {
		honored = append(honored, provider.ArgPageSize)
	}
	if args.IsIncremental {
		honored = append(honored, provider.ArgSyncGeneration)
	}
	return honored
}
