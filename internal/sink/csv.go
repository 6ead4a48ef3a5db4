package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/speedy-lang/sweep/internal/models"
)

// CSV appends run results to a tabular log file. The file is held open for
// the whole sweep and every row is flushed as soon as it is written, so
// results survive a later abort.
type CSV struct {
	path string
	file *os.File
	w    *csv.Writer
}

// OpenCSV opens the log file. Without appendMode any existing content is
// truncated; the header is only written when the file is empty, so appended
// sweeps keep a single header row.
func OpenCSV(path string, appendMode bool) (*CSV, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	c := &CSV{path: path, file: file, w: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := c.writeRow(models.ResultHeader()); err != nil {
			file.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *CSV) Path() string { return c.path }

func (c *CSV) Log(ctx context.Context, res *models.RunResult) error {
	return c.writeRow(res.Record())
}

func (c *CSV) writeRow(row []string) error {
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("failed to write result row: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("failed to flush result row: %w", err)
	}
	return nil
}

func (c *CSV) Close(ctx context.Context) error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return fmt.Errorf("failed to flush log file: %w", err)
	}
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
