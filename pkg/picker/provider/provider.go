// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package provider defines the media provider contract consumed by the picker
// sync controller, and the registry of providers installed on the device.
package provider

import "context"

// Query argument names a provider may report back as honored.
const (
	ArgAlbumID        = "album_id"
	ArgPageToken      = "page_token"
	ArgPageSize       = "page_size"
	ArgSyncGeneration = "sync_generation"
)

// LocalAuthority is the authority of the built-in local provider.
const LocalAuthority = "com.android.providers.media.photopicker"

// Info identifies a media provider installation.
type Info struct {
	Authority   string `json:"authority"`
	PackageName string `json:"package_name"`
	UID         int    `json:"uid"`
}

// EmptyInfo is the "no provider" sentinel.
var EmptyInfo = Info{}

// IsEmpty reports whether the Info is the "no provider" sentinel.
func (i Info) IsEmpty() bool {
	return i.Authority == ""
}

// Matches reports whether the Info belongs to the given package.
func (i Info) Matches(packageName string) bool {
	return !i.IsEmpty() && packageName != "" && i.PackageName == packageName
}

// CollectionInfo describes the provider's current media collection. A change
// of MediaCollectionID means the catalog was replaced wholesale;
// LastMediaSyncGeneration advances whenever items are added, modified or
// removed.
type CollectionInfo struct {
	MediaCollectionID       string `json:"media_collection_id"`
	LastMediaSyncGeneration int64  `json:"last_media_sync_generation"`
}

// QueryArgs are the arguments of a paged media query.
type QueryArgs struct {
	AlbumID   string
	PageToken string
	// PageSize is only sent when > 0 (paging enforced).
	PageSize int
	// SyncGeneration is only sent when IsIncremental is true.
	SyncGeneration int64
	IsIncremental  bool
}

// MediaRow is one media item row returned by a provider.
type MediaRow struct {
	ID          string `json:"id"`
	DateTakenMs int64  `json:"date_taken_ms"`
	SizeBytes   int64  `json:"size_bytes"`
	MimeType    string `json:"mime_type"`
	Duration    int64  `json:"duration_ms"`
}

// Page is one page of a provider query result, with the extras the controller
// validates: the collection the rows belong to, the token for the next page
// ("" on the last page) and the list of query args the provider honored.
type Page struct {
	Rows              []MediaRow `json:"rows"`
	MediaCollectionID string     `json:"media_collection_id"`
	NextPageToken     string     `json:"next_page_token"`
	HonoredArgs       []string   `json:"honored_args"`
}

// FirstDateTakenMs returns the date-taken timestamp of the first row, used as
// change-notification payload. ok is false for an empty page.
func (p *Page) FirstDateTakenMs() (int64, bool) {
	if len(p.Rows) == 0 {
		return 0, false
	}
	return p.Rows[0].DateTakenMs, true
}

// Honors reports whether the provider confirmed it took arg into account.
func (p *Page) Honors(arg string) bool {
	for _, a := range p.HonoredArgs {
		if a == arg {
			return true
		}
	}
	return false
}

// Provider is the query surface of a media provider backend. All calls may
// block on IPC or network; the controller passes a context through.
type Provider interface {
	// MediaCollectionInfo returns the provider's current collection id and
	// sync generation.
	MediaCollectionInfo(ctx context.Context) (CollectionInfo, error)

	// QueryMedia returns one page of media items.
	QueryMedia(ctx context.Context, args QueryArgs) (*Page, error)

	// QueryDeletedMedia returns one page of deleted media item ids, used
	// for the remove phase of incremental sync.
	QueryDeletedMedia(ctx context.Context, args QueryArgs) (*Page, error)
}
