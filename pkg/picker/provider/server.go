// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/DataDog/picker-sync/pkg/util/log"
)

// Handler exposes a Provider over HTTP so a provider process can serve the
// controller's RemoteProvider client. Routes:
//
//	GET /v1/media_collection_info
//	GET /v1/media
//	GET /v1/deleted_media
func Handler(p Provider) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/media_collection_info", func(w http.ResponseWriter, req *http.Request) {
		info, err := p.MediaCollectionInfo(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, info)
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/media", func(w http.ResponseWriter, req *http.Request) {
		servePage(w, req, p.QueryMedia)
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/deleted_media", func(w http.ResponseWriter, req *http.Request) {
		servePage(w, req, p.QueryDeletedMedia)
	}).Methods(http.MethodGet)

	return r
}

func servePage(w http.ResponseWriter, req *http.Request,
	query func(ctx context.Context, args QueryArgs) (*Page, error)) {
	args := QueryArgs{
		AlbumID:   req.URL.Query().Get(ArgAlbumID),
		PageToken: req.URL.Query().Get(ArgPageToken),
	}
	if v := req.URL.Query().Get(ArgPageSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "bad page_size", http.StatusBadRequest)
			return
		}
		args.PageSize = size
	}
	if v := req.URL.Query().Get(ArgSyncGeneration); v != "" {
		gen, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "bad sync_generation", http.StatusBadRequest)
			return
		}
		args.SyncGeneration = gen
		args.IsIncremental = true
	}

	page, err := query(req.Context(), args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, page)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("provider handler: failed to encode response: %v", err) //nolint:errcheck
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
