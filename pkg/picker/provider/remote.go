// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// RemoteProvider talks to a provider exposed over HTTP by another process on
// the device (the transport counterpart of Handler). It implements Provider.
type RemoteProvider struct {
	baseURL string
	client  *http.Client
}

// NewRemoteProvider returns a RemoteProvider for the given base URL, e.g.
// "http://127.0.0.1:7845". No request timeout is imposed beyond the caller's
// context; provider calls are allowed to block.
func NewRemoteProvider(baseURL string) *RemoteProvider {
	return &RemoteProvider{
		baseURL: baseURL,
		client:  &http.Client{Transport: &http.Transport{IdleConnTimeout: 90 * time.Second}},
	}
}

// MediaCollectionInfo implements Provider.
func (r *RemoteProvider) MediaCollectionInfo(ctx context.Context) (CollectionInfo, error) {
	var info CollectionInfo
	if err := r.get(ctx, "/v1/media_collection_info", nil, &info); err != nil {
		return CollectionInfo{}, err
	}
	return info, nil
}

// QueryMedia implements Provider.
func (r *RemoteProvider) QueryMedia(ctx context.Context, args QueryArgs) (*Page, error) {
	return r.queryPage(ctx, "/v1/media", args)
}

// QueryDeletedMedia implements Provider.
func (r *RemoteProvider) QueryDeletedMedia(ctx context.Context, args QueryArgs) (*Page, error) {
	return r.queryPage(ctx, "/v1/deleted_media", args)
}

func (r *RemoteProvider) queryPage(ctx context.Context, path string, args QueryArgs) (*Page, error) {
	q := url.Values{}
	if args.AlbumID != "" {
		q.Set(ArgAlbumID, args.AlbumID)
	}
	if args.PageToken != "" {
		q.Set(ArgPageToken, args.PageToken)
	}
	if args.PageSize > 0 {
		q.Set(ArgPageSize, strconv.Itoa(args.PageSize))
	}
	if args.IsIncremental {
		q.Set(ArgSyncGeneration, strconv.FormatInt(args.SyncGeneration, 10))
	}

	var page Page
	if err := r.get(ctx, path, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *RemoteProvider) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := r.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "building provider request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "querying provider %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding provider %s response", path)
	}
	return nil
}
