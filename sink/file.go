package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/use-agent/placescout/models"
)

// replaceFile writes through a temp file in the target directory and renames
// it over path, so a failed run never leaves a truncated file and a
// successful one never appends to an old one.
func replaceFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.NewScrapeError(models.ErrCodeIO, fmt.Sprintf("create output directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return models.NewScrapeError(models.ErrCodeIO, "create temp output file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return models.NewScrapeError(models.ErrCodeIO, fmt.Sprintf("write %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewScrapeError(models.ErrCodeIO, fmt.Sprintf("close %s", tmpName), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return models.NewScrapeError(models.ErrCodeIO, fmt.Sprintf("replace %s", path), err)
	}
	return nil
}
