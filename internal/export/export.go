// Package export flattens catalog words into spreadsheet rows.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"vocab-tiers-service/internal/domain"
)

// Columns is the fixed column order of every export.
var Columns = []string{"id", "somali", "english", "phonetic", "category", "tier", "points", "tags", "cultural_tip"}

const sheetName = "Words"

// Field is one key/value cell of a record.
type Field struct {
	Key   string
	Value string
}

// Record is one word as an ordered row, keyed by Columns.
type Record []Field

func (r Record) Values() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Value
	}
	return out
}

func (r Record) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Records projects words in the given order.
func Records(words []domain.Word) []Record {
	out := make([]Record, 0, len(words))
	for _, w := range words {
		values := []string{
			string(w.ID),
			w.Somali,
			w.English,
			w.Phonetic,
			string(w.Category),
			strconv.Itoa(int(w.Tier)),
			strconv.Itoa(w.Points),
			strings.Join(w.Tags, ", "),
			w.CulturalTip,
		}
		rec := make(Record, len(Columns))
		for i, col := range Columns {
			rec[i] = Field{Key: col, Value: values[i]}
		}
		out = append(out, rec)
	}
	return out
}

// Format selects the writer used by Write.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV:
		return f, nil
	case "":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func Write(w io.Writer, format Format, words []domain.Word) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, words)
	case FormatXLSX:
		return WriteXLSX(w, words)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func WriteCSV(w io.Writer, words []domain.Word) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, rec := range Records(words) {
		if err := cw.Write(rec.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with a header row.
func WriteXLSX(w io.Writer, words []domain.Word) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := setRow(f, 1, Columns); err != nil {
		return err
	}
	for i, rec := range Records(words) {
		if err := setRow(f, i+2, rec.Values()); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheetName, cell, &cells)
}
