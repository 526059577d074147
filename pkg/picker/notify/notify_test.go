// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMediaUpdateURI(t *testing.T) {
	assert.Equal(t,
		"content://media/picker_internal/update/media/1234",
		BuildMediaUpdateURI(OpAddMedia, "", 1234))

	assert.Equal(t,
		"content://media/picker_internal/update/album_content/album1/1234",
		BuildMediaUpdateURI(OpAddAlbum, "album1", 1234))

	assert.Equal(t,
		"content://media/picker_internal/update/album_content/album1/1234",
		BuildMediaUpdateURI(OpRemoveMedia, "album1", 1234))

	assert.Equal(t,
		"content://media/picker_internal/update/media/1234",
		BuildMediaUpdateURI(OpRemoveMedia, "", 1234))

	assert.Empty(t, BuildMediaUpdateURI(Operation(0), "", 1234))
}

func TestHubPrefixFiltering(t *testing.T) {
	h := NewHub()
	all := h.Subscribe("")
	media := h.Subscribe(InternalBase + "/update/media")

	h.Notify(BuildMediaUpdateURI(OpAddAlbum, "a", 1))
	h.Notify(BuildMediaUpdateURI(OpAddMedia, "", 2))

	require.Len(t, all, 2)
	require.Len(t, media, 1)
	assert.Equal(t, "content://media/picker_internal/update/media/2", <-media)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("")
	h.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	h.Notify(RefreshUIURI)
}

func TestHubDoesNotBlockOnSlowObserver(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("")

	for i := 0; i < 100; i++ {
		h.Notify(BuildMediaUpdateURI(OpAddMedia, "", int64(i)))
	}
	// Channel is buffered at 16; the rest were dropped, not blocked on.
	assert.Len(t, ch, 16)
}
