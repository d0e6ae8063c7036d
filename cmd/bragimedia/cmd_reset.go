/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/bragi_media/internal/db"
	"github.com/friendsincode/bragi_media/internal/settings"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the whole media library",
	Long: `Clear Bragi Media to a fresh state.

This removes every media item, playlist, playlist entry and media source
from the database. Settings and ignored folders are kept. The media files
themselves are never touched.

WARNING: This action is irreversible.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if !resetForce {
		fmt.Println("This will delete ALL media items, playlists and sources.")
		fmt.Print("Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil || strings.TrimSpace(answer) != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	settingsRepo := settings.NewRepository(database, logger)
	if err := settingsRepo.ClearLibrary(cmd.Context()); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}

	fmt.Println("Library cleared.")
	return nil
}
