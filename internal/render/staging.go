package render

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/formulary/internal/logfields"
)

// StageDir is the sibling directory pages are written to before promotion.
func StageDir(outputDir string) string { return outputDir + "_stage" }

// BackupDir holds the previous site while the stage is being promoted.
func BackupDir(outputDir string) string { return outputDir + ".prev" }

// beginStaging creates a clean staging directory next to outputDir.
func beginStaging(outputDir string) (string, error) {
	stage := StageDir(outputDir)
	if err := os.RemoveAll(stage); err != nil {
		return "", fmt.Errorf("remove stale staging directory: %w", err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	slog.Debug("Initialized staging directory", "staging", stage, "final", outputDir)
	return stage, nil
}

// promoteStaging replaces outputDir with stage:
//  1. Move existing outputDir (if any) to outputDir.prev, replacing an old backup.
//  2. Rename stage to outputDir.
//  3. Remove the backup.
//
// When step 2 fails the backup is moved back so the previous site survives.
func promoteStaging(stage, outputDir string) error {
	prev := BackupDir(outputDir)
	if err := os.RemoveAll(prev); err != nil {
		return fmt.Errorf("remove old backup: %w", err)
	}
	hadOutput := false
	if _, err := os.Stat(outputDir); err == nil {
		if err := os.Rename(outputDir, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
		hadOutput = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat output directory: %w", err)
	}
	if err := os.Rename(stage, outputDir); err != nil {
		if hadOutput {
			if restoreErr := os.Rename(prev, outputDir); restoreErr != nil {
				slog.Error("Failed to restore previous output", logfields.Path(outputDir), logfields.Error(restoreErr))
			}
		}
		return fmt.Errorf("promote staging: %w", err)
	}
	if hadOutput {
		if err := os.RemoveAll(prev); err != nil {
			slog.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
		}
	}
	slog.Debug("Promoted staging directory", "output", outputDir)
	return nil
}

// abortStaging removes a staging directory after a failed render.
func abortStaging(stage string) {
	if stage == "" {
		return
	}
	if err := os.RemoveAll(stage); err != nil {
		slog.Warn("Failed to remove staging directory after abort", "staging", stage, logfields.Error(err))
		return
	}
	slog.Debug("Removed staging directory after abort", "staging", stage)
}
