// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package tenant

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is the registry manifest wire format:
// { "clubs": { club_id: { "admins": [id, ...] } } }
type Manifest struct {
	Clubs map[string]ManifestClub `json:"clubs"`
}

// ManifestClub is one club's entry in the registry manifest.
type ManifestClub struct {
	Admins []string `json:"admins"`
}

// LoadManifest reads and decodes the registry manifest. The manifest is
// read-only at runtime: adding a club requires a restart.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode registry manifest: %w", err)
	}
	return &m, nil
}
