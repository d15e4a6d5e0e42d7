// Package export projects submissions onto the current field set as a table.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/360EntSecGroup-Skylar/excelize/v2"

	"github.com/mbolis/event-registration/model"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case "", CSV:
		return CSV, true
	case XLSX:
		return XLSX, true
	}
	return "", false
}

func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Filename() string {
	return "registrations." + string(f)
}

type Table struct {
	Header []string
	Rows   [][]string
}

const dateLayout = "2006-01-02"

// Project builds one row per submission, in the given order, with a column
// per currently defined label. Labels missing from a submission render empty.
func Project(fields []model.FieldDefinition, subs []model.Submission) Table {
	header := make([]string, 0, len(fields)+2)
	header = append(header, "S.No")
	for _, f := range fields {
		header = append(header, f.Label)
	}
	header = append(header, "CreatedAt")

	rows := make([][]string, 0, len(subs))
	for i, s := range subs {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i+1))
		for _, f := range fields {
			row = append(row, Cell(f, s.Answers))
		}
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.UTC().Format(dateLayout)
		}
		row = append(row, created)
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// Cell renders the answer for field f. Event answers are expanded to the
// event summary, looking plain names up in the field's current options.
func Cell(f model.FieldDefinition, answers model.Answers) string {
	a, ok := answers[f.Label]
	if !ok {
		return ""
	}
	if a.Event != nil {
		return a.Event.Summary()
	}
	if f.Kind == model.KindEvent {
		if e, ok := f.FindEvent(a.Text); ok {
			return e.Summary()
		}
	}
	return a.Text
}

func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

const sheet = "Sheet1"

func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	write := func(row int, values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err = f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write(1, t.Header); err != nil {
		return err
	}
	for i, r := range t.Rows {
		if err := write(i+2, r); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func Write(w io.Writer, format Format, t Table) error {
	if format == XLSX {
		return WriteXLSX(w, t)
	}
	return WriteCSV(w, t)
}
