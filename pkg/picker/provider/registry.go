// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package provider

import (
	"sort"
	"sync"

	"github.com/DataDog/picker-sync/pkg/config"
	"github.com/DataDog/picker-sync/pkg/util/log"
)

// Registry tracks the media providers installed on the device. The local
// provider is registered at construction; cloud providers come and go as
// their packages are installed and removed.
type Registry struct {
	cfg config.Store

	// m protects the maps below.
	m         sync.RWMutex
	infos     map[string]Info     // authority -> Info
	providers map[string]Provider // authority -> query handle
}

// NewRegistry returns a Registry holding only the given local provider.
func NewRegistry(cfg config.Store, localInfo Info, local Provider) *Registry {
	r := &Registry{
		cfg:       cfg,
		infos:     make(map[string]Info),
		providers: make(map[string]Provider),
	}
	r.Register(localInfo, local)
	return r
}

// Register adds or replaces an installed provider.
func (r *Registry) Register(info Info, p Provider) {
	if info.IsEmpty() {
		log.Warnf("registry: refusing to register provider with empty authority") //nolint:errcheck
		return
	}
	r.m.Lock()
	defer r.m.Unlock()
	r.infos[info.Authority] = info
	r.providers[info.Authority] = p
}

// Deregister removes an installed provider. It returns the removed Info so
// callers can run package-removal cleanup.
func (r *Registry) Deregister(authority string) Info {
	r.m.Lock()
	defer r.m.Unlock()
	info, ok := r.infos[authority]
	if !ok {
		return EmptyInfo
	}
	delete(r.infos, authority)
	delete(r.providers, authority)
	return info
}

// Info returns the Info of an installed authority regardless of the
// allow-list, or EmptyInfo.
func (r *Registry) Info(authority string) Info {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.infos[authority]
}

// Lookup returns the query handle for an installed authority, or nil.
func (r *Registry) Lookup(authority string) Provider {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.providers[authority]
}

// Available returns the installed cloud providers that pass the config
// allow-list. An empty allow-list admits every installed provider.
func (r *Registry) Available(localAuthority string) []Info {
	return r.list(localAuthority, false)
}

// AllAvailable returns the installed cloud providers ignoring the allow-list.
func (r *Registry) AllAvailable(localAuthority string) []Info {
	return r.list(localAuthority, true)
}

func (r *Registry) list(localAuthority string, ignoreAllowlist bool) []Info {
	allowed := map[string]struct{}{}
	allowlist := r.cfg.AllowedCloudProviders()
	for _, pkg := range allowlist {
		allowed[pkg] = struct{}{}
	}

	r.m.RLock()
	defer r.m.RUnlock()

	out := make([]Info, 0, len(r.infos))
	for authority, info := range r.infos {
		if authority == localAuthority {
			continue
		}
		if !ignoreAllowlist && len(allowlist) > 0 {
			if _, ok := allowed[info.PackageName]; !ok {
				continue
			}
		}
		out = append(out, info)
	}

	// Deterministic order for default selection and diagnostics.
	sort.Slice(out, func(i, j int) bool { return out[i].Authority < out[j].Authority })
	return out
}

// Resolve returns the Info for an authority if it is in the relevant listing,
// or EmptyInfo. The empty authority always resolves to EmptyInfo.
func (r *Registry) Resolve(authority, localAuthority string, ignoreAllowlist bool) Info {
	if authority == "" {
		return EmptyInfo
	}
	for _, info := range r.list(localAuthority, ignoreAllowlist) {
		if info.Authority == authority {
			return info
		}
	}
	return EmptyInfo
}
