// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"
	"sort"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

// PinViolation is a pin whose version falls outside the manifest's
// declared constraint for the same package, or a pin that carries no
// version at all.
type PinViolation struct {
	Package    string `json:"package"`
	Pinned     string `json:"pinned"`
	Constraint string `json:"constraint,omitempty"`
}

// VerifyResult compares a manifest's inventory against its pins file.
// Missing lists inventory packages without a pin, Orphans lists pins
// that map to nothing in the inventory.
type VerifyResult struct {
	Manifest   string         `json:"manifest"`
	Pins       string         `json:"pins"`
	Missing    []string       `json:"missing,omitempty"`
	Orphans    []string       `json:"orphans,omitempty"`
	Violations []PinViolation `json:"violations,omitempty"`
	OK         bool           `json:"ok"`
}

// Verify checks that the pins file covers the manifest's full inventory,
// declared plus documented indirect packages, that every pin maps back to
// the inventory, and that pinned versions satisfy the manifest's
// constraints. Names are compared in canonical form.
func Verify(manifestPath, pinsPath string) (*VerifyResult, error) {
	if pinsPath == "" {
		return nil, fmt.Errorf("no pins file configured")
	}
	m, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	pins, err := LoadPins(pinsPath)
	if err != nil {
		return nil, err
	}

	pinned := map[string]manifest.Requirement{}
	for _, req := range pins.Declared() {
		if _, ok := pinned[req.Canonical]; !ok {
			pinned[req.Canonical] = req
		}
	}

	// First declaration wins, matching how the duplicate rule treats
	// repeated names.
	inventory := map[string]manifest.Requirement{}
	addInventory := func(reqs []manifest.Requirement) {
		for _, req := range reqs {
			if _, ok := inventory[req.Canonical]; !ok {
				inventory[req.Canonical] = req
			}
		}
	}
	addInventory(m.Declared())
	addInventory(m.DocumentedIndirect())

	res := &VerifyResult{Manifest: manifestPath, Pins: pinsPath}

	for name, req := range inventory {
		pin, ok := pinned[name]
		if !ok {
			res.Missing = append(res.Missing, name)
			continue
		}
		floor, hasVersion := pin.Floor()
		switch {
		case !hasVersion:
			res.Violations = append(res.Violations, PinViolation{
				Package:    name,
				Pinned:     pin.RawConstraint,
				Constraint: req.RawConstraint,
			})
		case req.ConstraintErr == nil && len(req.Constraint) > 0 && !req.Constraint.Contains(floor):
			res.Violations = append(res.Violations, PinViolation{
				Package:    name,
				Pinned:     floor.String(),
				Constraint: req.Constraint.String(),
			})
		}
	}

	for name := range pinned {
		if _, ok := inventory[name]; !ok {
			res.Orphans = append(res.Orphans, name)
		}
	}

	sort.Strings(res.Missing)
	sort.Strings(res.Orphans)
	sort.Slice(res.Violations, func(i, j int) bool {
		return res.Violations[i].Package < res.Violations[j].Package
	})

	res.OK = len(res.Missing) == 0 && len(res.Orphans) == 0 && len(res.Violations) == 0
	return res, nil
}
