package loto

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultWindowStart is the first draw date of the default reports (start of the current rules).
const DefaultWindowStart = "14/07/2019"

// Frequency is the output row of ComputeStats.
type Frequency struct {
	Number    int     `json:"numero"`
	Count     int     `json:"nombre_sorties"`
	Percent   float64 `json:"%_sorties"`
	LastDrawn string  `json:"derniere_sortie"`
}

type frequencyAcc struct {
	count int
	last  time.Time
}

// StatsQuery selects the observations ComputeStats counts.
type StatsQuery struct {
	// Columns are the ball columns to expand, e.g. FirstDrawColumns.
	Columns []string
	// Categories filters draws by type_loto. Empty means AllCategories.
	Categories []Category
	// DateMin and DateMax are inclusive DD/MM/YYYY bounds; empty means unbounded.
	DateMin string
	DateMax string
}

// ComputeStats counts how often each number was drawn in the selected columns.
//
// Every selected column of every matching draw is one observation; 0 means the slot was not drawn
// and is skipped. Percentages are shares of all kept observations rounded to 2 decimals. Rows are
// returned by number ascending. An empty observation set gives an empty result.
func ComputeStats(c *Corpus, q StatsQuery) ([]Frequency, error) {
	if c == nil {
		return []Frequency{}, nil
	}
	cats := q.Categories
	if len(cats) == 0 {
		cats = AllCategories
	}
	allowed := make(map[Category]bool, len(cats))
	for _, cat := range cats {
		allowed[cat] = true
	}

	var from, to time.Time
	if s := strings.TrimSpace(q.DateMin); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("date_min %q: %w", q.DateMin, err)
		}
		from = t
	}
	if s := strings.TrimSpace(q.DateMax); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("date_max %q: %w", q.DateMax, err)
		}
		to = t
	}

	acc := make(map[int]*frequencyAcc)
	total := 0
	for _, d := range c.Draws {
		if !allowed[d.Category] {
			continue
		}
		when := d.Time()
		if !from.IsZero() && when.Before(from) {
			continue
		}
		if !to.IsZero() && when.After(to) {
			continue
		}
		for _, col := range q.Columns {
			n := d.Ball(col)
			if n == 0 {
				continue
			}
			total++
			f, ok := acc[n]
			if !ok {
				f = &frequencyAcc{}
				acc[n] = f
			}
			f.count++
			if when.After(f.last) {
				f.last = when
			}
		}
	}

	out := make([]Frequency, 0, len(acc))
	if total == 0 {
		return out, nil
	}
	for n, f := range acc {
		out = append(out, Frequency{
			Number:    n,
			Count:     f.count,
			Percent:   round2(float64(f.count) / float64(total) * 100),
			LastDrawn: f.last.Format(dateLayout),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Report is a named statistics query run after each ingestion.
type Report struct {
	Name  string
	Query StatsQuery
}

// DefaultReports mirrors the three summaries of a run: first draw, chance number and second draw,
// for loto and super-loto since DefaultWindowStart.
func DefaultReports() []Report {
	cats := []Category{CategoryLoto, CategorySuperLoto}
	return []Report{
		{Name: "premier tirage", Query: StatsQuery{Columns: FirstDrawColumns, Categories: cats, DateMin: DefaultWindowStart}},
		{Name: "numero chance", Query: StatsQuery{Columns: ChanceColumns, Categories: cats, DateMin: DefaultWindowStart}},
		{Name: "second tirage", Query: StatsQuery{Columns: SecondDrawColumns, Categories: cats, DateMin: DefaultWindowStart}},
	}
}
