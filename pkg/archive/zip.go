// Package archive bundles batch artifacts into a single zip download.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/danmuget/danmuget/pkg/batch"
)

// Zip packs the artifacts into a deflate-compressed archive, preserving
// their order. Filenames are stored as-is (UTF-8), which players and
// modern unzip tools handle fine.
func Zip(artifacts []batch.Artifact) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, a := range artifacts {
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:   a.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", a.Name, err)
		}
		if _, err := f.Write(a.Data); err != nil {
			return nil, fmt.Errorf("write %q: %w", a.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
