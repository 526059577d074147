// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package config

import (
	"path/filepath"
	"testing"
)

// Mock returns a Store isolated from the global one, with db paths pointed at
// the test's temp dir. Tests mutate it freely through Set.
func Mock(t *testing.T) Store {
	s := NewStore()
	dir := t.TempDir()
	s.Set("picker_db_path", filepath.Join(dir, "picker.db"))
	s.Set("prefs_db_path", filepath.Join(dir, "prefs.db"))
	return s
}
