// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package config holds the picker-sync configuration. It is a thin layer over
// viper: defaults are registered here, values come from the optional YAML
// config file and from PICKER_-prefixed environment variables.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Datadog-style global configuration object for the process.
var C Store = NewStore()

// Store is the config surface consumed by the rest of the repo.
type Store interface {
	// IsCloudMediaInPhotoPickerEnabled returns whether the cloud media
	// feature is enabled at all. When false the controller never selects
	// or accepts a cloud provider.
	IsCloudMediaInPhotoPickerEnabled() bool

	// DefaultCloudProviderPackage returns the package name of the cloud
	// provider to auto-select when none is configured, or "" if unset.
	DefaultCloudProviderPackage() string

	// AllowedCloudProviders returns the cloud provider allow-list. An
	// empty list means every installed provider is allowed.
	AllowedCloudProviders() []string

	PickerDBPath() string
	PrefsDBPath() string
	SyncPageSize() int
	SyncInterval() time.Duration
	StatsdAddr() string
	LogLevel() string

	// Set overrides a value at runtime. Mostly useful in tests.
	Set(key string, value interface{})
}

type store struct {
	v *viper.Viper
}

// NewStore builds a Store with all defaults registered.
func NewStore() Store {
	v := viper.New()
	v.SetEnvPrefix("PICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cloud_media_in_photo_picker_enabled", true)
	v.SetDefault("default_cloud_provider_package", "")
	v.SetDefault("allowed_cloud_providers", []string{})
	v.SetDefault("picker_db_path", filepath.Join("/var/lib/picker-sync", "picker.db"))
	v.SetDefault("prefs_db_path", filepath.Join("/var/lib/picker-sync", "prefs.db"))
	v.SetDefault("sync_page_size", 1000)
	v.SetDefault("sync_interval", 15*time.Minute)
	v.SetDefault("statsd_addr", "")
	v.SetDefault("log_level", "info")

	return &store{v: v}
}

// Load reads the given YAML config file into the global config. A missing
// file is not an error; defaults and environment variables still apply.
func Load(configPath string) error {
	s, ok := C.(*store)
	if !ok {
		return nil
	}
	if configPath == "" {
		return nil
	}
	s.v.SetConfigFile(configPath)
	if err := s.v.ReadInConfig(); err != nil {
		if _, isNotFound := err.(viper.ConfigFileNotFoundError); isNotFound {
			return nil
		}
		return err
	}
	return nil
}

func (s *store) IsCloudMediaInPhotoPickerEnabled() bool {
	return s.v.GetBool("cloud_media_in_photo_picker_enabled")
}

func (s *store) DefaultCloudProviderPackage() string {
	return s.v.GetString("default_cloud_provider_package")
}

func (s *store) AllowedCloudProviders() []string {
	return s.v.GetStringSlice("allowed_cloud_providers")
}

func (s *store) PickerDBPath() string {
	return s.v.GetString("picker_db_path")
}

func (s *store) PrefsDBPath() string {
	return s.v.GetString("prefs_db_path")
}

func (s *store) SyncPageSize() int {
	return s.v.GetInt("sync_page_size")
}

func (s *store) SyncInterval() time.Duration {
	return s.v.GetDuration("sync_interval")
}

func (s *store) StatsdAddr() string {
	return s.v.GetString("statsd_addr")
}

func (s *store) LogLevel() string {
	return s.v.GetString("log_level")
}

func (s *store) Set(key string, value interface{}) {
	s.v.Set(key, value)
}
