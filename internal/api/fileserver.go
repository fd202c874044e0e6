// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/reqwatch/reqwatch/internal/log"
	platformfs "github.com/reqwatch/reqwatch/internal/platform/fs"
)

// handleFiles serves report files from the data directory. Requests are
// checked for traversal tricks before the path is confined below the
// data directory, and responses carry a weak ETag so pollers can cache.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	cfg, _ := s.snapshot()

	rel := chi.URLParam(r, "*")

	if rel == "" || strings.HasSuffix(rel, "/") {
		fileRequestsTotal.WithLabelValues("denied").Inc()
		logger.Warn().
			Str("event", "file_req.denied").
			Str(log.FieldPath, r.URL.Path).
			Str("reason", "directory_listing").
			Msg("directory listing forbidden")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if isPathTraversal(rel) {
		fileRequestsTotal.WithLabelValues("denied").Inc()
		logger.Warn().
			Str("event", "file_req.denied").
			Str(log.FieldPath, r.URL.Path).
			Str("reason", "path_escape").
			Msg("detected traversal sequence")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	realPath, err := platformfs.ConfineRelPath(cfg.DataDir, rel)
	if err != nil {
		if os.IsNotExist(err) {
			fileRequestsTotal.WithLabelValues("not_found").Inc()
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		fileRequestsTotal.WithLabelValues("denied").Inc()
		logger.Warn().
			Err(err).
			Str("event", "file_req.denied").
			Str(log.FieldPath, r.URL.Path).
			Str("reason", "path_escape").
			Msg("path rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(realPath)
	if err != nil {
		if os.IsNotExist(err) {
			fileRequestsTotal.WithLabelValues("not_found").Inc()
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		fileRequestsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).
			Str("event", "file_req.error").
			Str(log.FieldPath, realPath).
			Msg("could not stat file")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		fileRequestsTotal.WithLabelValues("denied").Inc()
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// #nosec G304 -- realPath is confined to the data directory above
	f, err := os.Open(realPath)
	if err != nil {
		fileRequestsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).
			Str("event", "file_req.error").
			Str(log.FieldPath, realPath).
			Msg("could not open file")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, realPath).Msg("failed to close file")
		}
	}()

	// Weak validator from modtime and size; the reports are rewritten
	// atomically so this pair changes on every update.
	etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=60")

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		fileRequestsTotal.WithLabelValues("cache_hit").Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if strings.HasSuffix(strings.ToLower(info.Name()), ".json") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}

	fileRequestsTotal.WithLabelValues("allowed").Inc()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// isPathTraversal rejects traversal attempts before any filesystem
// access: repeated URL decoding catches double encodings, Unicode
// normalization catches lookalike dots, and NUL bytes are never valid.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		}
		if decoded == prev {
			break
		}
	}

	if strings.Contains(decoded, "\x00") || strings.Contains(strings.ToLower(decoded), "%00") {
		return true
	}

	normalized := norm.NFC.String(decoded)
	for _, candidate := range []string{decoded, normalized} {
		if strings.Contains(candidate, "..") || strings.Contains(candidate, "\\") {
			return true
		}
	}
	return false
}
