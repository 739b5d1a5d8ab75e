package loto

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]string{
	"LU": "LUNDI",
	"MA": "MARDI",
	"ME": "MERCREDI",
	"JE": "JEUDI",
	"VE": "VENDREDI",
	"SA": "SAMEDI",
	"DI": "DIMANCHE",
}

// NormalizeYearIndex rewrites the four known encodings of the year/draw-number field to YYYY-NNN.
// Every result is 8 characters with '-' at index 4, so canonical values come back unchanged.
//
//	8 chars  2019-045 / 20190045  -> year [0:4], number [5:]
//	7 chars  2019045              -> year [0:4], number [4:]
//	5 chars  19145                -> "20" + [0:2], number [2:]
//	4 chars  1231                 -> 2023, number [1:]
//
// The 4-char rule only exists for one 2023 archive that dropped the year; it is not a general
// year inference.
func NormalizeYearIndex(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 8:
		return s[0:4] + "-" + s[5:], nil
	case 7:
		return s[0:4] + "-" + s[4:], nil
	case 5:
		return "20" + s[0:2] + "-" + s[2:], nil
	case 4:
		return "2023-" + s[1:], nil
	default:
		return "", fmt.Errorf("unrecognized year index encoding (length %d)", len(s))
	}
}

// HarmonizeDay expands two-letter weekday codes. Any other value is returned as is.
func HarmonizeDay(s string) string {
	s = strings.TrimSpace(s)
	if day, ok := weekdays[s]; ok {
		return day
	}
	return s
}

// NormalizeDate returns the draw date as DD/MM/YYYY.
// Compact 8-digit dates are read as YYYYMMDD, or as DDMMYYYY when that reading is not a calendar
// date. Values already formatted are returned unchanged once validated.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == 8 && isDigits(s) {
		if t, err := time.Parse("20060102", s); err == nil {
			return t.Format(dateLayout), nil
		}
		if t, err := time.Parse("02012006", s); err == nil {
			return t.Format(dateLayout), nil
		}
		return "", fmt.Errorf("compact date is not a calendar date")
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("unrecognized date format")
	}
	return s, nil
}

// ToISO reorders a DD/MM/YYYY date to YYYY-MM-DD for comparisons.
func ToISO(date string) (string, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return "", fmt.Errorf("invalid draw date %q: %w", date, err)
	}
	return t.Format("2006-01-02"), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// Classifier derives the category of a batch from its provenance identifier.
type Classifier func(sourceFile string) Category

// ClassifyCategory is the file-name heuristic used by the archive publisher's naming.
// Any "s" in the name means super-loto, so an incidental "s" misclassifies a batch.
func ClassifyCategory(sourceFile string) Category {
	name := strings.ReplaceAll(sourceFile, ".csv", "")
	if strings.Contains(name, "s") {
		return CategorySuperLoto
	}
	if strings.Contains(name, "g") || strings.Contains(name, "noel") {
		return CategoryGrandLoto
	}
	return CategoryLoto
}

// ManifestClassifier looks up explicit file tokens first and falls back to the heuristic.
// Tokens are matched as substrings of the file name, longest token first.
func ManifestClassifier(manifest map[string]Category, fallback Classifier) Classifier {
	if fallback == nil {
		fallback = ClassifyCategory
	}
	tokens := make([]string, 0, len(manifest))
	for tok := range manifest {
		if strings.TrimSpace(tok) != "" {
			tokens = append(tokens, tok)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return func(sourceFile string) Category {
		for _, tok := range tokens {
			if strings.Contains(sourceFile, tok) {
				return manifest[tok]
			}
		}
		return fallback(sourceFile)
	}
}

// parseBall reads a ball cell. Missing cells are 0; float renderings such as "12.0" are accepted
// when integral.
func parseBall(s string) (int, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("not an integer")
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative ball number")
	}
	return n, nil
}

// Normalizer maps tagged batch rows onto canonical draws.
type Normalizer struct {
	Classify Classifier
}

func NewNormalizer(classify Classifier) *Normalizer {
	if classify == nil {
		classify = ClassifyCategory
	}
	return &Normalizer{Classify: classify}
}

// Normalize converts every row of t. The first value without a canonical form rejects the whole
// batch with a *SchemaError.
func (n *Normalizer) Normalize(sourceFile string, t *Table) ([]Draw, error) {
	for _, col := range TripleKey {
		if !t.HasColumn(col) {
			return nil, &SchemaError{Source: sourceFile, Column: col, Reason: "missing required column"}
		}
	}

	category := n.Classify(sourceFile)
	draws := make([]Draw, 0, len(t.Rows))
	for i, row := range t.Rows {
		d, err := n.normalizeRow(sourceFile, category, t.Columns, row)
		if err != nil {
			err.Source = sourceFile
			err.Row = i + 1
			return nil, err
		}
		draws = append(draws, d)
	}
	return draws, nil
}

func (n *Normalizer) normalizeRow(sourceFile string, category Category, columns []string, row Row) (Draw, *SchemaError) {
	d := Draw{
		SourceFile: sourceFile,
		Category:   category,
		Balls:      make(map[string]int),
		Extras:     make(map[string]string),
	}
	if v := row.get(ColSourceFile); v != "" {
		d.SourceFile = v
	}
	if v := row.get(ColCategory); v != "" {
		c, ok := ParseCategory(v)
		if !ok {
			return Draw{}, &SchemaError{Column: ColCategory, Value: v, Reason: "unknown category"}
		}
		d.Category = c
	}

	yi, err := NormalizeYearIndex(row.get(ColYearIndex))
	if err != nil {
		return Draw{}, &SchemaError{Column: ColYearIndex, Value: row[ColYearIndex], Reason: err.Error()}
	}
	d.YearIndex = yi
	d.Weekday = HarmonizeDay(row.get(ColWeekday))
	date, err := NormalizeDate(row.get(ColDate))
	if err != nil {
		return Draw{}, &SchemaError{Column: ColDate, Value: row[ColDate], Reason: err.Error()}
	}
	d.Date = date

	for _, col := range columns {
		if isCanonicalColumn(col) {
			continue
		}
		if isBallColumn(col) {
			v, err := parseBall(row[col])
			if err != nil {
				return Draw{}, &SchemaError{Column: col, Value: row[col], Reason: err.Error()}
			}
			d.Balls[col] = v
			continue
		}
		if v, ok := row[col]; ok {
			d.Extras[col] = v
		}
	}
	return d, nil
}

// canonicalize re-applies the idempotent transforms to an already normalized draw.
func canonicalize(d Draw) (Draw, error) {
	yi, err := NormalizeYearIndex(d.YearIndex)
	if err != nil {
		return d, &SchemaError{Source: d.SourceFile, Column: ColYearIndex, Value: d.YearIndex, Reason: err.Error()}
	}
	date, err := NormalizeDate(d.Date)
	if err != nil {
		return d, &SchemaError{Source: d.SourceFile, Column: ColDate, Value: d.Date, Reason: err.Error()}
	}
	d.YearIndex = yi
	d.Weekday = HarmonizeDay(d.Weekday)
	d.Date = date
	return d, nil
}
