// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package sync

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrRequestObsolete reports that the cloud provider changed between the
// start of an operation and the moment it touched cloud state. The run is
// aborted, never retried, and the db facade stays cloud-disabled until the
// next successful sync.
var ErrRequestObsolete = errors.New("sync request obsolete: cloud provider changed")

// stateError is a fatal sync-state violation: malformed collection info from
// a provider, a collection id that changed across pages, a required query arg
// the provider did not honor, or a repeated page token. Full-media syncs
// react with one reset + retry.
type stateError struct {
	msg string
}

func (e *stateError) Error() string {
	return e.msg
}

func illegalStatef(format string, args ...interface{}) error {
	return &stateError{msg: fmt.Sprintf(format, args...)}
}

func isStateError(err error) bool {
	var se *stateError
	return errors.As(err, &se)
}
