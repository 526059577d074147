// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DataDog/picker-sync/pkg/config"
	"github.com/DataDog/picker-sync/pkg/picker/provider"
	"github.com/DataDog/picker-sync/pkg/picker/provider/providertest"
)

var (
	localInfo = provider.Info{
		Authority:   provider.LocalAuthority,
		PackageName: "com.android.providers.media",
		UID:         1000,
	}
	cloudA = provider.Info{Authority: "cloud.a", PackageName: "com.example.a", UID: 10001}
	cloudB = provider.Info{Authority: "cloud.b", PackageName: "com.example.b", UID: 10002}
)

func newRegistry(t *testing.T) (*provider.Registry, config.Store) {
	cfg := config.Mock(t)
	return provider.NewRegistry(cfg, localInfo, &providertest.Fake{}), cfg
}

func TestAvailableExcludesLocal(t *testing.T) {
	r, _ := newRegistry(t)
	r.Register(cloudA, &providertest.Fake{})

	available := r.Available(provider.LocalAuthority)
	assert.Equal(t, []provider.Info{cloudA}, available)
}

func TestAllowlistFiltering(t *testing.T) {
	r, cfg := newRegistry(t)
	r.Register(cloudA, &providertest.Fake{})
	r.Register(cloudB, &providertest.Fake{})

	cfg.Set("allowed_cloud_providers", []string{"com.example.b"})

	assert.Equal(t, []provider.Info{cloudB}, r.Available(provider.LocalAuthority))
	assert.Equal(t, []provider.Info{cloudA, cloudB}, r.AllAvailable(provider.LocalAuthority))
}

func TestResolve(t *testing.T) {
	r, cfg := newRegistry(t)
	r.Register(cloudA, &providertest.Fake{})
	cfg.Set("allowed_cloud_providers", []string{"com.example.other"})

	assert.Equal(t, provider.EmptyInfo, r.Resolve("cloud.a", provider.LocalAuthority, false))
	assert.Equal(t, cloudA, r.Resolve("cloud.a", provider.LocalAuthority, true))
	assert.Equal(t, provider.EmptyInfo, r.Resolve("", provider.LocalAuthority, true))
	assert.Equal(t, provider.EmptyInfo, r.Resolve("cloud.unknown", provider.LocalAuthority, true))
}

func TestDeregister(t *testing.T) {
	r, _ := newRegistry(t)
	r.Register(cloudA, &providertest.Fake{})

	removed := r.Deregister("cloud.a")
	assert.Equal(t, cloudA, removed)
	assert.Nil(t, r.Lookup("cloud.a"))
	assert.Equal(t, provider.EmptyInfo, r.Deregister("cloud.a"))
}
