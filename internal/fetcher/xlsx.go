package fetcher

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // overrides SheetIndex when set
	HasHeader  bool   // first row goes to HeaderCh instead of the row channel
	HeaderCh   chan<- []string
}

// StreamXLSX reads one sheet of an XLSX workbook and sends its rows to a
// channel, skipping rows whose cells are all empty. Both channels are closed
// when reading completes.
func StreamXLSX(ctx context.Context, path string, opts XLSXOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrap(err, "xlsx: open file")
			return
		}

		sheet, err := pickSheet(f, opts)
		if err != nil {
			errCh <- err
			return
		}

		first := true
		for _, row := range sheet.Rows {
			cells := rowCells(row)
			if len(cells) == 0 {
				continue
			}

			var ch chan<- []string = rowCh
			if first && opts.HasHeader {
				ch = opts.HeaderCh
			}
			first = false
			if ch == nil {
				continue
			}

			select {
			case ch <- cells:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xlsx: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (workbook has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

// rowCells returns the row's cell strings, or nil when every cell is empty.
func rowCells(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	empty := true
	for i, cell := range row.Cells {
		cells[i] = cell.String()
		if cells[i] != "" {
			empty = false
		}
	}
	if empty {
		return nil
	}
	return cells
}
