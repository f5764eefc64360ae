package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// packDir writes the contents of srcDir into a gzip-compressed tar archive
// at archivePath. Entries are sorted so the same tree always produces the
// same member order.
func packDir(srcDir, archivePath string) error {
	var paths []string

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == srcDir {
			return nil
		}

		paths = append(paths, path)

		return nil
	})
	if err != nil {
		return fmt.Errorf("backup: walking staging directory: %w", err)
	}

	sort.Strings(paths)

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("backup: creating archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, path := range paths {
		if err := addArchiveEntry(tw, srcDir, path); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("backup: finalizing archive: %w", err)
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("backup: finalizing compression: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("backup: closing archive: %w", err)
	}

	return nil
}

func addArchiveEntry(tw *tar.Writer, srcDir, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("backup: stat %s: %w", path, err)
	}

	// Save trees are plain files and directories; anything else is skipped.
	if !info.Mode().IsRegular() && !info.IsDir() {
		return nil
	}

	rel, err := filepath.Rel(srcDir, path)
	if err != nil {
		return fmt.Errorf("backup: relativizing %s: %w", path, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("backup: building header for %s: %w", rel, err)
	}

	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("backup: writing header for %s: %w", rel, err)
	}

	if info.IsDir() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("backup: opening %s: %w", rel, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("backup: archiving %s: %w", rel, err)
	}

	return nil
}

// extractArchive unpacks a gzip-compressed tar archive into destDir.
// Member names that would escape destDir are rejected.
func extractArchive(archivePath, destDir string) error {
	in, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("backup: opening archive: %w", err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("backup: reading compression header: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return fmt.Errorf("backup: reading archive: %w", err)
		}

		target, err := secureJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("backup: creating directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := extractFile(tr, target, hdr); err != nil {
				return err
			}
		default:
			// Unsupported member types are skipped, matching packDir.
		}
	}
}

func extractFile(tr *tar.Reader, target string, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("backup: creating parent for %s: %w", hdr.Name, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)&0o777)
	if err != nil {
		return fmt.Errorf("backup: creating %s: %w", hdr.Name, err)
	}

	if _, err := io.Copy(out, tr); err != nil {
		out.Close()
		return fmt.Errorf("backup: extracting %s: %w", hdr.Name, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("backup: closing %s: %w", hdr.Name, err)
	}

	return nil
}

// secureJoin joins a tar member name onto destDir, rejecting traversal.
func secureJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))

	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("backup: archive member escapes destination: %s", name)
	}

	return target, nil
}
