// SPDX-License-Identifier: MIT

// Package fs guards filesystem access below configured roots. Report
// downloads and manifest resolution go through these checks so a crafted
// request path or a planted symlink cannot reach outside the data
// directory.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfineRelPath joins root and relTarget and verifies the result stays
// physically underneath the resolved root. relTarget must be relative;
// symlinks along the way are resolved before the containment check.
func ConfineRelPath(root, relTarget string) (string, error) {
	// Backslashes are never valid separators here and would bypass the
	// segment checks on some platforms.
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", relTarget)
	}

	cleanRel := filepath.Clean(relTarget)
	if filepath.IsAbs(cleanRel) || strings.HasPrefix(cleanRel, "/") {
		return "", fmt.Errorf("target path must be relative: %s", relTarget)
	}

	// Clean collapses "a/../b", so a leading ".." is the only way left
	// to point above the root.
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt: %s", relTarget)
	}

	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}

	return resolveWithin(realRoot, filepath.Join(realRoot, cleanRel))
}

// ConfineAbsPath verifies that targetAbs lies physically underneath the
// resolved root. The target must already be absolute; it is resolved,
// not joined.
func ConfineAbsPath(root, targetAbs string) (string, error) {
	if strings.Contains(targetAbs, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", targetAbs)
	}
	if !filepath.IsAbs(targetAbs) {
		return "", fmt.Errorf("target path must be absolute: %s", targetAbs)
	}

	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}

	return resolveWithin(realRoot, filepath.Clean(targetAbs))
}

func resolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		return absRoot, nil
	}
	return realRoot, nil
}

// resolveWithin resolves symlinks in candidate and confirms the real
// path still sits under realRoot.
func resolveWithin(realRoot, candidate string) (string, error) {
	var realPath string
	if _, err := os.Lstat(candidate); err == nil {
		rp, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			// An existing entry we cannot resolve is denied rather than
			// passed through unchecked.
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = rp
	} else {
		// The target does not exist yet (reports are written lazily).
		// Resolve the parent instead and re-attach the base name.
		dir := filepath.Dir(candidate)
		rp, evalErr := filepath.EvalSymlinks(dir)
		switch {
		case evalErr == nil:
			realPath = filepath.Join(rp, filepath.Base(candidate))
		default:
			if _, statErr := os.Stat(dir); statErr == nil {
				// Parent exists but cannot be resolved: fail closed.
				return "", fmt.Errorf("failed to resolve parent path: %v", evalErr)
			}
			// Parent missing too; the Rel check below still applies.
			realPath = candidate
		}
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root via symlinks: %s", realPath)
	}

	return realPath, nil
}

// IsRegularFile reports an error unless path exists and is a regular
// file. Manifests and pins files must never be directories or devices.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}
