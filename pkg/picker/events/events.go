// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package events reports picker sync audit events and counters over statsd.
// A Reporter with a nil client is valid and drops everything, so callers
// never have to branch on whether statsd is configured.
package events

import (
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/DataDog/picker-sync/pkg/util/log"
)

// Reporter emits audit events for the sync controller.
type Reporter struct {
	client statsd.ClientInterface
}

// NewReporter returns a Reporter for the given statsd address. An empty
// address yields a no-op Reporter.
func NewReporter(addr string) *Reporter {
	if addr == "" {
		return &Reporter{}
	}
	client, err := statsd.New(addr, statsd.WithNamespace("picker."))
	if err != nil {
		log.Warnf("events: statsd disabled: %v", err) //nolint:errcheck
		return &Reporter{}
	}
	return &Reporter{client: client}
}

// NewNoopReporter returns a Reporter that drops everything.
func NewNoopReporter() *Reporter {
	return &Reporter{}
}

// NewReporterWithClient returns a Reporter over an explicit statsd client.
// Intended for tests that assert on emitted events.
func NewReporterWithClient(client statsd.ClientInterface) *Reporter {
	return &Reporter{client: client}
}

// CloudProviderChanged records a cloud provider switch audit event.
func (r *Reporter) CloudProviderChanged(uid int, packageName string) {
	if r.client == nil {
		return
	}
	tags := []string{
		fmt.Sprintf("uid:%d", uid),
		fmt.Sprintf("package:%s", packageName),
	}
	_ = r.client.Incr("cloud_provider.changed", tags, 1)
}

// SyncPage records one committed page of a paged sync.
func (r *Reporter) SyncPage(isLocal bool, rows int) {
	if r.client == nil {
		return
	}
	tags := []string{providerTag(isLocal)}
	_ = r.client.Incr("sync.pages", tags, 1)
	_ = r.client.Count("sync.rows", int64(rows), tags, 1)
}

// SyncFailure records a failed sync run.
func (r *Reporter) SyncFailure(isLocal bool) {
	if r.client == nil {
		return
	}
	_ = r.client.Incr("sync.failures", []string{providerTag(isLocal)}, 1)
}

func providerTag(isLocal bool) string {
	if isLocal {
		return "provider:local"
	}
	return "provider:cloud"
}
