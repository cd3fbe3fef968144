package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
)

const utf8BOM = "\ufeff"

// WriteCSV writes rows as semicolon-separated UTF-8 with a BOM, the form
// spreadsheet software in French locales opens without an import dialog.
func WriteCSV(w io.Writer, rows []growth.Row) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(bw)
	cw.Comma = ';'
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(Columns))
	for i := range rows {
		for j, col := range Columns {
			record[j] = formatCell(col.Value(&rows[i]))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return bw.Flush()
}
