package loto

import (
	"strconv"
	"strings"
)

// MergeReport describes what MergeDraws did to one batch.
type MergeReport struct {
	Split bool
	// FirstRows and SecondRows count the rows flagged 1 and 2.
	FirstRows  int
	SecondRows int
	// UnmatchedSecond counts second draws whose triple has no first draw. They are dropped: the
	// join is anchored on first draws.
	UnmatchedSecond int
	// Unflagged counts rows whose flag is neither 1 nor 2; they belong to no sub-table.
	Unflagged int
}

// secondDrawRename returns the suffixed name of a ball column of the second draw.
func secondDrawRename(col string) (string, bool) {
	if col == "boule_complementaire" {
		return col + secondDrawSuffix, true
	}
	for i := 1; i <= 6; i++ {
		if col == "boule_"+strconv.Itoa(i) {
			return col + secondDrawSuffix, true
		}
	}
	return col, false
}

func tripleOf(r Row) string {
	return r.get(ColYearIndex) + "\x00" + r.get(ColWeekday) + "\x00" + r.get(ColDate)
}

func isTripleColumn(col string) bool {
	for _, k := range TripleKey {
		if k == col {
			return true
		}
	}
	return false
}

// MergeDraws folds the second draw of a date into the row of its first draw.
//
// Batches without the draw flag column come back unchanged. Otherwise rows flagged 1 are
// left-joined with rows flagged 2 on the triple key; the second-draw balls are renamed with the
// _second_tirage suffix. Other columns present on both sides are suffixed _x (first) and _y
// (second), and the assembler's denylist removes them.
func MergeDraws(t *Table) (*Table, MergeReport, error) {
	var rep MergeReport
	if !t.HasColumn(ColDrawFlag) {
		return t, rep, nil
	}
	for _, k := range TripleKey {
		if !t.HasColumn(k) {
			return nil, rep, &SchemaError{Column: k, Reason: "missing join column for first/second draw merge"}
		}
	}
	rep.Split = true

	var first, second []Row
	for _, r := range t.Rows {
		switch flag, _ := parseBall(r.get(ColDrawFlag)); flag {
		case 1:
			first = append(first, r)
		case 2:
			second = append(second, r)
		default:
			rep.Unflagged++
		}
	}
	rep.FirstRows = len(first)
	rep.SecondRows = len(second)

	var left []string
	for _, c := range t.Columns {
		if c != ColDrawFlag {
			left = append(left, c)
		}
	}
	right := make([]string, len(left))
	rightSource := make(map[string]string, len(left))
	for i, c := range left {
		renamed, _ := secondDrawRename(c)
		right[i] = renamed
		rightSource[renamed] = c
	}

	inLeft := make(map[string]bool, len(left))
	for _, c := range left {
		inLeft[c] = true
	}
	overlap := make(map[string]bool)
	for _, c := range right {
		if inLeft[c] && !isTripleColumn(c) {
			overlap[c] = true
		}
	}

	out := &Table{}
	leftName := make(map[string]string, len(left))
	for _, c := range left {
		name := c
		if overlap[c] {
			name = c + "_x"
		}
		leftName[c] = name
		out.Columns = append(out.Columns, name)
	}
	rightName := make(map[string]string, len(right))
	for _, c := range right {
		if isTripleColumn(c) {
			continue
		}
		name := c
		if overlap[c] {
			name = c + "_y"
		}
		rightName[c] = name
		out.Columns = append(out.Columns, name)
	}

	secondByKey := make(map[string][]Row)
	for _, r := range second {
		k := tripleOf(r)
		secondByKey[k] = append(secondByKey[k], r)
	}
	firstKeys := make(map[string]bool, len(first))

	for _, fr := range first {
		k := tripleOf(fr)
		firstKeys[k] = true
		base := make(Row, len(out.Columns))
		for _, c := range left {
			if v, ok := fr[c]; ok {
				base[leftName[c]] = v
			}
		}
		matches := secondByKey[k]
		if len(matches) == 0 {
			out.Rows = append(out.Rows, base)
			continue
		}
		for _, sr := range matches {
			row := make(Row, len(out.Columns))
			for c, v := range base {
				row[c] = v
			}
			for c, name := range rightName {
				if v, ok := sr[rightSource[c]]; ok {
					row[name] = v
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}

	for k, rows := range secondByKey {
		if !firstKeys[k] {
			rep.UnmatchedSecond += len(rows)
		}
	}
	return out, rep, nil
}

// TagBatch puts the provenance and category columns in front of the batch columns.
func TagBatch(t *Table, sourceFile string, category Category) *Table {
	out := &Table{Columns: []string{ColSourceFile, ColCategory}, Rows: make([]Row, len(t.Rows))}
	for _, c := range t.Columns {
		if c != ColSourceFile && c != ColCategory {
			out.Columns = append(out.Columns, c)
		}
	}
	for i, r := range t.Rows {
		row := make(Row, len(r)+2)
		for k, v := range r {
			row[k] = v
		}
		row[ColSourceFile] = sourceFile
		row[ColCategory] = string(category)
		out.Rows[i] = row
	}
	return out
}

// applyAliases renames legacy header names to their current spelling. Header cells are trimmed
// and lowercased first.
func applyAliases(t *Table, aliases map[string]string) *Table {
	out := &Table{Columns: make([]string, 0, len(t.Columns)), Rows: make([]Row, len(t.Rows))}
	rename := make(map[string]string, len(t.Columns))
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.ToLower(strings.TrimSpace(c))
		if to, ok := aliases[name]; ok {
			name = to
		}
		rename[c] = name
		if !seen[name] {
			seen[name] = true
			out.Columns = append(out.Columns, name)
		}
	}
	for i, r := range t.Rows {
		row := make(Row, len(r))
		for k, v := range r {
			if name, ok := rename[k]; ok {
				k = name
			}
			row[k] = v
		}
		out.Rows[i] = row
	}
	return out
}
