/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package importer

import (
	"context"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Scanner discovers files under a folder tree. Implementations prune whole
// subtrees whose folder name matches an ignore pattern, they do not just
// skip the leaves.
type Scanner interface {
	ScanTree(ctx context.Context, rootURI string, ignorePatterns []string) ([]FileInfo, error)
}

// FSScanner walks a local directory tree.
type FSScanner struct {
	logger zerolog.Logger
}

// NewFSScanner creates a filesystem scanner.
func NewFSScanner(logger zerolog.Logger) *FSScanner {
	return &FSScanner{logger: logger.With().Str("component", "fs_scanner").Logger()}
}

// folderIgnored matches ignore patterns case-insensitively as substrings of
// the folder name.
func folderIgnored(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range patterns {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ScanTree walks rootURI recursively, descending past ignored subtrees and
// collecting file descriptors. Unreadable entries are logged and skipped so
// one bad directory cannot sink the scan.
func (s *FSScanner) ScanTree(ctx context.Context, rootURI string, ignorePatterns []string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(rootURI, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("error accessing path")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if path != rootURI && folderIgnored(entry.Name(), ignorePatterns) {
				return fs.SkipDir
			}
			return nil
		}

		info := FileInfo{
			URI:         path,
			DisplayName: entry.Name(),
			MimeType:    mime.TypeByExtension(filepath.Ext(entry.Name())),
		}
		if stat, statErr := entry.Info(); statErr == nil {
			info.SizeBytes = stat.Size()
		}
		files = append(files, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
