// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package notify builds and publishes the change-notification URIs that the
// picker UI observes. URIs are plain strings under a fixed internal base; the
// Hub fans them out to in-process observers.
package notify

import (
	"strconv"
	"strings"
	"sync"

	"github.com/DataDog/picker-sync/pkg/util/log"
)

// The internal observable URI space. Existing picker observers watch these
// exact URI shapes, so they must not change.
const (
	InternalBase = "content://media/picker_internal"

	// RefreshUIURI is notified when the cloud provider changes.
	RefreshUIURI = InternalBase + "/refresh/ui"

	segUpdate       = "update"
	segMedia        = "media"
	segAlbumContent = "album_content"
)

// Operation identifies which paged sync operation produced a notification.
type Operation int

// Paged sync operation kinds.
const (
	OpAddMedia Operation = iota + 1
	OpAddAlbum
	OpRemoveMedia
)

// String implements fmt.Stringer.
func (op Operation) String() string {
	switch op {
	case OpAddMedia:
		return "add_media"
	case OpAddAlbum:
		return "add_album"
	case OpRemoveMedia:
		return "remove_media"
	default:
		return "unknown"
	}
}

// BuildMediaUpdateURI assembles the notification URI for a completed page of
// the given operation. Returns "" for operations that do not notify.
//
//	add media            -> <base>/update/media/<dateTakenMs>
//	add album            -> <base>/update/album_content/<albumId>/<dateTakenMs>
//	remove media (album) -> <base>/update/album_content/<albumId>/<dateTakenMs>
//	remove media         -> <base>/update/media/<dateTakenMs>
func BuildMediaUpdateURI(op Operation, albumID string, dateTakenMs int64) string {
	ts := strconv.FormatInt(dateTakenMs, 10)
	switch op {
	case OpAddMedia:
		return join(InternalBase, segUpdate, segMedia, ts)
	case OpAddAlbum:
		return join(InternalBase, segUpdate, segAlbumContent, albumID, ts)
	case OpRemoveMedia:
		if albumID != "" {
			return join(InternalBase, segUpdate, segAlbumContent, albumID, ts)
		}
		return join(InternalBase, segUpdate, segMedia, ts)
	default:
		log.Warnf("notify: operation %d does not support notifications", op) //nolint:errcheck
		return ""
	}
}

func join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Hub fans notification URIs out to subscribers. Publishing never blocks: a
// subscriber whose channel is full misses the notification (observers treat
// any notification as "something changed" and re-query anyway).
type Hub struct {
	m    sync.Mutex
	subs map[chan string]string // channel -> uri prefix filter
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan string]string)}
}

// Subscribe registers an observer for URIs starting with prefix ("" matches
// everything). The returned channel is buffered; drain it promptly.
func (h *Hub) Subscribe(prefix string) <-chan string {
	ch := make(chan string, 16)
	h.m.Lock()
	h.subs[ch] = prefix
	h.m.Unlock()
	return ch
}

// Unsubscribe removes an observer and closes its channel.
func (h *Hub) Unsubscribe(ch <-chan string) {
	h.m.Lock()
	defer h.m.Unlock()
	for sub := range h.subs {
		if (<-chan string)(sub) == ch {
			delete(h.subs, sub)
			close(sub)
			return
		}
	}
}

// Notify publishes a URI to all matching subscribers. Empty URIs are ignored.
func (h *Hub) Notify(uri string) {
	if uri == "" {
		return
	}
	h.m.Lock()
	defer h.m.Unlock()
	for ch, prefix := range h.subs {
		if prefix != "" && !strings.HasPrefix(uri, prefix) {
			continue
		}
		select {
		case ch <- uri:
		default:
			log.Debugf("notify: dropping %s for slow observer", uri)
		}
	}
}
