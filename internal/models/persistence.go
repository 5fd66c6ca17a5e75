package models

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Save writes each artifact to dir as a UTF-8 file, creating dir if needed.
// Known artifacts absent from the set are removed from dir, so the directory
// always mirrors the set. It returns the absolute directory path.
func (a ArtifactSet) Save(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", err
	}

	for _, name := range ArtifactNames {
		path := filepath.Join(abs, name)
		content, ok := a[name]
		if !ok {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", err
			}
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return "", err
		}
	}
	return abs, nil
}

// LoadArtifact reads one generated file from dir. Only the known artifact
// names are served.
func LoadArtifact(dir, name string) ([]byte, error) {
	if !IsArtifactName(name) {
		return nil, fmt.Errorf("%q: %w", name, os.ErrNotExist)
	}
	return os.ReadFile(filepath.Join(dir, name))
}

// WriteZip packages the artifacts present in dir into a zip archive.
func WriteZip(dir string, w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range ArtifactNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// ArchiveName derives the download file name from the plan title.
func ArchiveName(plan GamePlan) string {
	title := "game"
	if plan != nil {
		title = plan.Title("game")
	}
	return strings.ToLower(strings.ReplaceAll(title, " ", "_")) + ".zip"
}
