/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package share hands media files to the host platform's share mechanism.
package share

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// Sharer pushes a local file to an external destination. Implementations
// are best effort; a failure must not disturb playback or the catalog.
type Sharer interface {
	Share(ctx context.Context, path, displayName string) error
}

// ExecSharer shells out to the platform opener (xdg-open on Linux, open on
// darwin). It covers the common single-user desktop deployment.
type ExecSharer struct {
	logger zerolog.Logger
}

func NewExecSharer(logger zerolog.Logger) *ExecSharer {
	return &ExecSharer{logger: logger.With().Str("component", "share").Logger()}
}

func (s *ExecSharer) Share(ctx context.Context, path, displayName string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	cmd := exec.CommandContext(ctx, opener, path)
	if err := cmd.Start(); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("share failed")
		return fmt.Errorf("share %s: %w", displayName, err)
	}
	go func() {
		// Reap the opener; its exit status is not interesting.
		_ = cmd.Wait()
	}()
	return nil
}

// NopSharer is used when no share integration is configured.
type NopSharer struct{}

func (NopSharer) Share(ctx context.Context, path, displayName string) error {
	return nil
}
