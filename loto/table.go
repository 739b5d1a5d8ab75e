package loto

import "strings"

// Row is one raw record keyed by column name. Absent keys and empty strings both mean "missing".
type Row map[string]string

// Table is a raw batch as read from one archive: an ordered header plus rows.
type Table struct {
	Columns []string
	Rows    []Row
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddRow appends a row built from values in header order. Missing trailing values stay absent.
func (t *Table) AddRow(values ...string) {
	row := make(Row, len(t.Columns))
	for i, c := range t.Columns {
		if i < len(values) {
			row[c] = values[i]
		}
	}
	t.Rows = append(t.Rows, row)
}

func (r Row) get(col string) string {
	return strings.TrimSpace(r[col])
}
