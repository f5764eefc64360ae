// Package ludusavi drives the ludusavi CLI, the save-data capture tool.
// Capture populates a staging directory with a game's save files; Restore
// writes a previously captured directory back onto the filesystem, remapping
// paths recorded under a different environment.
package ludusavi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// mappingFile is the index ludusavi writes alongside captured saves. It
// records the absolute source path of every file, so restores onto a
// different prefix or home directory need it rewritten first.
const mappingFile = "mapping.yaml"

// Tool invokes the ludusavi binary.
type Tool struct {
	binary string
	logger *slog.Logger
}

// New creates a Tool. An empty binary path defaults to "ludusavi" on PATH.
func New(binary string, logger *slog.Logger) *Tool {
	if binary == "" {
		binary = "ludusavi"
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Tool{binary: binary, logger: logger}
}

// Capture backs the game's save files up into destDir. winePrefix, when
// non-empty, points ludusavi at a compatibility-layer prefix.
func (t *Tool) Capture(ctx context.Context, shop, objectID, destDir, winePrefix string) error {
	args := []string{"backup", "--api", "--force", "--path", destDir}
	if winePrefix != "" {
		args = append(args, "--wine-prefix", winePrefix)
	}

	args = append(args, objectID)

	t.logger.Info("capturing save data",
		slog.String("shop", shop),
		slog.String("object_id", objectID),
		slog.String("dest", destDir),
	)

	return t.run(ctx, args)
}

// Restore writes the captured saves in srcDir back onto the filesystem.
// homeDirMapping is the conventional user-profile path the backup was
// recorded against; recordedPrefix and currentPrefix let saves recorded
// under one compatibility prefix land in another.
func (t *Tool) Restore(
	ctx context.Context, srcDir, objectID, homeDirMapping, currentPrefix, recordedPrefix string,
) error {
	if err := remapMapping(srcDir, homeDirMapping, currentPrefix, recordedPrefix, t.logger); err != nil {
		return err
	}

	args := []string{"restore", "--api", "--force", "--path", srcDir}
	if currentPrefix != "" {
		args = append(args, "--wine-prefix", currentPrefix)
	}

	args = append(args, objectID)

	t.logger.Info("restoring save data",
		slog.String("object_id", objectID),
		slog.String("src", srcDir),
	)

	return t.run(ctx, args)
}

// Version returns the ludusavi version string.
func (t *Tool) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, t.binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("ludusavi: querying version: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

func (t *Tool) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, t.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("ludusavi: %s: %s: %w", args[0], msg, err)
		}

		return fmt.Errorf("ludusavi: %s: %w", args[0], err)
	}

	return nil
}

// remapMapping rewrites recorded absolute paths in the capture index so a
// restore targets the current environment: the recorded compatibility prefix
// becomes the current one, and the recorded user-profile path becomes this
// machine's. A missing index is fine — ludusavi resolves paths itself then.
func remapMapping(srcDir, homeDirMapping, currentPrefix, recordedPrefix string, logger *slog.Logger) error {
	path := filepath.Join(srcDir, mappingFile)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("ludusavi: reading capture index: %w", err)
	}

	content := string(data)

	if recordedPrefix != "" && currentPrefix != "" && recordedPrefix != currentPrefix {
		content = strings.ReplaceAll(content, recordedPrefix, currentPrefix)
	}

	if homeDirMapping != "" {
		home, homeErr := os.UserHomeDir()
		if homeErr == nil && home != homeDirMapping {
			content = strings.ReplaceAll(content, homeDirMapping, home)
		}
	}

	if content == string(data) {
		return nil
	}

	logger.Debug("remapped capture index paths", slog.String("path", path))

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("ludusavi: rewriting capture index: %w", err)
	}

	return nil
}
