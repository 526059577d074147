// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package sync

import (
	"context"

	"github.com/pkg/errors"

	"github.com/DataDog/picker-sync/pkg/picker/db"
	"github.com/DataDog/picker-sync/pkg/picker/notify"
	"github.com/DataDog/picker-sync/pkg/picker/prefs"
	"github.com/DataDog/picker-sync/pkg/picker/provider"
	"github.com/DataDog/picker-sync/pkg/util/log"
)

// pagedRequest describes one paged sync operation against a provider.
type pagedRequest struct {
	op        notify.Operation
	authority string
	isLocal   bool
	// albumID is set for album operations only.
	albumID string
	// deleted selects the deleted-media endpoint (the remove phase of an
	// incremental sync).
	deleted bool
	// expectedCollectionID, when non-empty, must match the collection id
	// of every page; a mismatch is fatal for the run.
	expectedCollectionID string
	// requiredArgs must all appear in each page's honored args.
	requiredArgs []string
	args         provider.QueryArgs
	resumeKey    string
}

// executePagedSync runs a page-by-page sync from the provider into the db.
// After each committed page the next-page token is persisted under the
// request's resume key, so a crashed run resumes at the last committed page.
func (c *Controller) executePagedSync(ctx context.Context, req pagedRequest) error {
	p := c.registry.Lookup(req.authority)
	if p == nil {
		return errors.Errorf("provider %s is not installed", req.authority)
	}

	// Tokens seen this run; a repeat means the provider is cycling.
	tokensSeen := make(map[string]struct{})
	totalRows := 0

	pageToken := c.pageTokenFromResumeKey(req.resumeKey)
	if pageToken != "" {
		log.Infof("resumable operation found for %s, resuming with page token %s",
			req.resumeKey, pageToken)
	}

	for {
		res, err := c.syncOnePage(ctx, p, &req, pageToken, tokensSeen)
		if errors.Is(err, db.ErrInvalidOperation) {
			// The write operation could not even be opened; abort
			// without touching persisted state.
			log.Errorf("failed to open db write operation for %s: %v", req.op, err) //nolint:errcheck
			return err
		}
		if err != nil {
			return err
		}
		totalRows += res.rows
		c.events.SyncPage(req.isLocal, res.rows)

		if err := c.rememberNextPageToken(res.nextToken, req.resumeKey); err != nil {
			return err
		}
		// New data landed; let observers know.
		if res.hasRows {
			c.hub.Notify(notify.BuildMediaUpdateURI(req.op, req.albumID, res.dateTakenMs))
		}
		if res.nextToken == "" {
			break
		}
		pageToken = res.nextToken
	}

	log.Infof("paged sync successful. op: %s, authority: %s, total rows: %d",
		req.op, req.authority, totalRows)
	return nil
}

// pageResult is the outcome of one committed page.
type pageResult struct {
	nextToken   string // "" when this was the last page
	rows        int
	dateTakenMs int64
	hasRows     bool
}

// syncOnePage queries one page and writes it through a scoped db operation.
func (c *Controller) syncOnePage(ctx context.Context, p provider.Provider, req *pagedRequest,
	pageToken string, tokensSeen map[string]struct{}) (pageResult, error) {
	op, err := c.beginPagedOperation(req)
	if err != nil {
		return pageResult{}, err
	}
	defer op.Close() //nolint:errcheck

	args := req.args
	args.PageToken = pageToken

	var page *provider.Page
	if req.deleted {
		page, err = p.QueryDeletedMedia(ctx, args)
	} else {
		page, err = p.QueryMedia(ctx, args)
	}
	if err != nil {
		return pageResult{}, errors.Wrapf(err, "querying %s", req.authority)
	}

	nextToken, err := validatePage(page, req.expectedCollectionID, req.requiredArgs, tokensSeen)
	if err != nil {
		return pageResult{}, err
	}

	rows, err := op.Execute(page)
	if err != nil {
		return pageResult{}, errors.Wrap(err, "executing db write operation")
	}
	dateTakenMs, hasRows := page.FirstDateTakenMs()

	op.SetSuccess()
	if err := op.Close(); err != nil {
		return pageResult{}, errors.Wrap(err, "committing db write operation")
	}

	return pageResult{
		nextToken:   nextToken,
		rows:        rows,
		dateTakenMs: dateTakenMs,
		hasRows:     hasRows,
	}, nil
}

func (c *Controller) beginPagedOperation(req *pagedRequest) (*db.WriteOperation, error) {
	switch req.op {
	case notify.OpAddMedia:
		return c.db.BeginAddMediaOperation(req.authority)
	case notify.OpAddAlbum:
		return c.db.BeginAddAlbumMediaOperation(req.authority, req.albumID)
	case notify.OpRemoveMedia:
		return c.db.BeginRemoveMediaOperation(req.authority)
	default:
		return nil, errors.Wrapf(db.ErrInvalidOperation,
			"cannot begin a paged operation of type %d", req.op)
	}
}

// validatePage checks the page extras the provider is contractually required
// to return. Violations are fatal state errors for the run.
func validatePage(page *provider.Page, expectedCollectionID string,
	requiredArgs []string, tokensSeen map[string]struct{}) (string, error) {
	if page == nil {
		return "", illegalStatef("provider returned no page")
	}
	if page.MediaCollectionID == "" {
		return "", illegalStatef("unable to verify the media collection id")
	}
	if expectedCollectionID != "" && expectedCollectionID != page.MediaCollectionID {
		return "", illegalStatef("mismatched media collection id. expected: %s, found: %s",
			expectedCollectionID, page.MediaCollectionID)
	}
	for _, arg := range requiredArgs {
		if !page.Honors(arg) {
			return "", illegalStatef("unhonored arg %q. expected: %v, found: %v",
				arg, requiredArgs, page.HonoredArgs)
		}
	}
	if _, seen := tokensSeen[page.NextPageToken]; seen {
		return "", illegalStatef("found repeated page token: %q", page.NextPageToken)
	}
	tokensSeen[page.NextPageToken] = struct{}{}
	return page.NextPageToken, nil
}

// pageTokenFromResumeKey returns the persisted page token to resume from, or
// "" when the operation starts from scratch.
func (c *Controller) pageTokenFromResumeKey(resumeKey string) string {
	token, _ := c.prefs.GetString(prefs.SyncPrefs, resumeKey)
	return token
}

// rememberNextPageToken checkpoints the token after a committed page. An
// empty token clears the checkpoint (the run completed).
func (c *Controller) rememberNextPageToken(token, resumeKey string) error {
	if token == "" {
		log.Debugf("clearing next page token for key: %s", resumeKey)
		return c.prefs.Remove(prefs.SyncPrefs, resumeKey)
	}
	log.Debugf("saving next page token: %s for key: %s", token, resumeKey)
	return c.prefs.PutString(prefs.SyncPrefs, resumeKey, token)
}
