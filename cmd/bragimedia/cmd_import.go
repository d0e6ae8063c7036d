/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/db"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/importer"
	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/settings"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import media into the catalog",
	Long:  "Import individual media files or scan a whole folder tree into the catalog",
}

var importFilesCmd = &cobra.Command{
	Use:   "files [path ...]",
	Short: "Import the given media files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImportFiles,
}

var importFolderCmd = &cobra.Command{
	Use:   "folder [path]",
	Short: "Scan a folder tree and import the media it contains",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportFolder,
}

var (
	importMediaType string
	importDecision  string
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importFilesCmd)
	importCmd.AddCommand(importFolderCmd)

	importCmd.PersistentFlags().StringVar(&importMediaType, "type", "audio", "Fallback media type for files whose type cannot be inferred (audio|video)")
	importCmd.PersistentFlags().StringVar(&importDecision, "on-duplicate", "", "Duplicate handling: skip, replace, or cancel (default: ask)")
}

func runImportFiles(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	workflow, database, err := buildImportWorkflow()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	files := make([]importer.FileInfo, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory, use `import folder`", arg)
		}
		files = append(files, importer.FileInfo{
			URI:         "file://" + abs,
			DisplayName: filepath.Base(abs),
			SizeBytes:   info.Size(),
		})
	}

	fallback := models.MediaType(importMediaType)
	if !fallback.IsValid() {
		return fmt.Errorf("invalid media type %q", importMediaType)
	}

	report, err := workflow.ImportFiles(cmd.Context(), files, fallback, terminalDecision())
	printImportOutcome(report, err)
	return nil
}

func runImportFolder(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	workflow, database, err := buildImportWorkflow()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	abs, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[0], err)
	}
	scanner := importer.NewFSScanner(logger)

	report, err := workflow.ImportFolder(cmd.Context(), abs, filepath.Base(abs), scanner, terminalDecision())
	printImportOutcome(report, err)
	return nil
}

func buildImportWorkflow() (*importer.Workflow, *gorm.DB, error) {
	database, err := initDatabase()
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	media := catalog.NewRepository(database, logger)
	sources := catalog.NewSourceRepository(database, logger)
	settingsRepo := settings.NewRepository(database, logger)
	bus := events.NewBus()
	workflow := importer.NewWorkflow(media, sources, settingsRepo, bus, logger)
	return workflow, database, nil
}

// terminalDecision resolves the duplicate prompt either from the
// --on-duplicate flag or interactively on stdin.
func terminalDecision() importer.DecisionFunc {
	return func(ctx context.Context, duplicates []importer.FileInfo) (importer.Decision, error) {
		switch importer.Decision(importDecision) {
		case importer.DecisionSkip, importer.DecisionReplace, importer.DecisionCancel:
			return importer.Decision(importDecision), nil
		}

		fmt.Printf("\n%d file(s) are already in the library:\n", len(duplicates))
		for i, dup := range duplicates {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(duplicates)-i)
				break
			}
			fmt.Printf("  %s\n", dup.DisplayName)
		}
		fmt.Print("Skip duplicates, replace them, or cancel the import? [s/r/c]: ")

		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return importer.DecisionCancel, nil
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "s", "skip":
			return importer.DecisionSkip, nil
		case "r", "replace":
			return importer.DecisionReplace, nil
		default:
			return importer.DecisionCancel, nil
		}
	}
}

func printImportOutcome(report importer.Report, err error) {
	switch {
	case errors.Is(err, importer.ErrCancelled):
		fmt.Println("Import cancelled, nothing was written.")
	case err != nil:
		fmt.Printf("Import failed: %v\n", err)
	default:
		fmt.Printf("Import finished: %d found, %d added, %d skipped.\n",
			report.Found, report.Added, report.Skipped)
	}
}
