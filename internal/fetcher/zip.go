package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks every file in the archive at zipPath below destDir,
// keeping the archive's directory layout, and returns the written paths.
// Entries whose names would land outside destDir are rejected.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer zr.Close() //nolint:errcheck

	var written []string
	for _, entry := range zr.File {
		name := filepath.FromSlash(entry.Name)
		if !filepath.IsLocal(name) {
			return written, eris.Errorf("zip: entry %q escapes %s", entry.Name, destDir)
		}
		if entry.FileInfo().IsDir() {
			continue
		}

		dest := filepath.Join(destDir, name)
		if err := extractEntry(entry, dest); err != nil {
			return written, err
		}
		written = append(written, dest)
	}
	return written, nil
}

func extractEntry(entry *zip.File, dest string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return eris.Wrapf(err, "zip: create directory for %s", entry.Name)
	}

	src, err := entry.Open()
	if err != nil {
		return eris.Wrapf(err, "zip: open entry %s", entry.Name)
	}
	defer src.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "zip: create %s", dest)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "zip: close %s", dest)
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		return eris.Wrapf(err, "zip: write %s", dest)
	}
	return nil
}
