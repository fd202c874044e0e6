// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

// LoadPins reads the pin inventory manifest. An empty path means pins are
// not configured and returns nil without error; the pin-coverage rule then
// skips itself. Shape problems inside the file (pins without versions,
// pins outside their constraints) are reported by lint rules, not here.
func LoadPins(path string) (*manifest.Manifest, error) {
	if path == "" {
		return nil, nil
	}
	pins, err := manifest.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pins %s: %w", path, err)
	}
	return pins, nil
}
