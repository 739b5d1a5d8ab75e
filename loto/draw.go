package loto

import (
	"strconv"
	"strings"
	"time"
)

const (
	ColSourceFile = "source_file"
	ColCategory   = "type_loto"
	ColYearIndex  = "annee_numero_de_tirage"
	ColWeekday    = "jour_de_tirage"
	ColDate       = "date_de_tirage"
	ColChance     = "numero_chance"
	// ColDrawFlag tells the first draw (1) from the second draw (2) of the same date.
	ColDrawFlag = "1er_ou_2eme_tirage"

	secondDrawSuffix = "_second_tirage"
	dateLayout       = "02/01/2006"
)

// TripleKey lists the columns that identify one draw.
var TripleKey = []string{ColYearIndex, ColWeekday, ColDate}

// Category is the product variant of a draw.
type Category string

const (
	CategoryLoto      Category = "loto"
	CategorySuperLoto Category = "super-loto"
	CategoryGrandLoto Category = "grand-loto"
)

// AllCategories is the default category filter.
var AllCategories = []Category{CategoryLoto, CategorySuperLoto, CategoryGrandLoto}

func ParseCategory(s string) (Category, bool) {
	switch Category(strings.TrimSpace(s)) {
	case CategoryLoto:
		return CategoryLoto, true
	case CategorySuperLoto:
		return CategorySuperLoto, true
	case CategoryGrandLoto:
		return CategoryGrandLoto, true
	default:
		return "", false
	}
}

// FirstDrawColumns are the primary balls of a current-format draw.
var FirstDrawColumns = []string{"boule_1", "boule_2", "boule_3", "boule_4", "boule_5"}

// ChanceColumns holds the complementary number column.
var ChanceColumns = []string{ColChance}

// SecondDrawColumns are the balls of the second draw for variants that have one.
var SecondDrawColumns = []string{
	"boule_1" + secondDrawSuffix,
	"boule_2" + secondDrawSuffix,
	"boule_3" + secondDrawSuffix,
	"boule_4" + secondDrawSuffix,
}

// canonicalColumns is the fixed head of every corpus, in output order.
var canonicalColumns = []string{ColSourceFile, ColCategory, ColYearIndex, ColWeekday, ColDate}

// canonicalBallColumns are always present in a corpus even when no batch carried them.
var canonicalBallColumns = append(append(append([]string(nil), FirstDrawColumns...), ColChance), SecondDrawColumns...)

func isBallColumn(col string) bool {
	return strings.Contains(col, "boule_") || col == ColChance
}

func isCanonicalColumn(col string) bool {
	for _, c := range canonicalColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Draw is one canonical draw record.
type Draw struct {
	SourceFile string
	Category   Category
	YearIndex  string
	Weekday    string
	Date       string
	// Balls holds every ball column of the record; a missing ball is 0.
	Balls map[string]int
	// Extras holds the surviving non-ball columns as read.
	Extras map[string]string
}

type DrawKey struct {
	YearIndex string
	Weekday   string
	Date      string
}

func (d Draw) Key() DrawKey {
	return DrawKey{YearIndex: d.YearIndex, Weekday: d.Weekday, Date: d.Date}
}

func (d Draw) Ball(col string) int {
	return d.Balls[col]
}

// Time parses Date. Corpus draws always hold a valid date.
func (d Draw) Time() time.Time {
	t, _ := time.Parse(dateLayout, d.Date)
	return t
}

// Value renders any column of the record as text.
func (d Draw) Value(col string) string {
	switch col {
	case ColSourceFile:
		return d.SourceFile
	case ColCategory:
		return string(d.Category)
	case ColYearIndex:
		return d.YearIndex
	case ColWeekday:
		return d.Weekday
	case ColDate:
		return d.Date
	}
	if isBallColumn(col) {
		return strconv.Itoa(d.Balls[col])
	}
	return d.Extras[col]
}
