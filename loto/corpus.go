package loto

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// DefaultDenylist lists the substrings of noise columns: prize and currency data, promotions,
// combination strings, joker numbers, header artifacts and the _x/_y left-overs of the draw merge.
var DefaultDenylist = []string{
	"Unnamed",
	"devise",
	"forclusion",
	"codes",
	"joker",
	"nombre",
	"rapport",
	"promotion",
	"combinaison",
	"_x",
	"_y",
}

// AssemblerOptions configures corpus assembly.
type AssemblerOptions struct {
	// Denylist holds substrings; any column containing one is dropped. Nil means DefaultDenylist.
	Denylist []string
	// Classify tags each batch with its category. Nil means ClassifyCategory.
	Classify Classifier
	// Aliases renames legacy header names (lowercased) before anything else.
	Aliases map[string]string
	Debug   bool
}

// BatchReport summarizes one accepted batch.
type BatchReport struct {
	SourceFile string
	Category   Category
	Rows       int
	Merge      MergeReport
}

type batch struct {
	columns []string
	draws   []Draw
}

// Assembler accumulates normalized batches and builds the canonical corpus once.
type Assembler struct {
	opts       AssemblerOptions
	normalizer *Normalizer
	batches    []batch
}

func NewAssembler(opts AssemblerOptions) *Assembler {
	if opts.Denylist == nil {
		opts.Denylist = DefaultDenylist
	}
	if opts.Classify == nil {
		opts.Classify = ClassifyCategory
	}
	return &Assembler{opts: opts, normalizer: NewNormalizer(opts.Classify)}
}

func (a *Assembler) debugf(format string, args ...any) {
	if !a.opts.Debug {
		return
	}
	log.Printf(format, args...)
}

// Denied reports whether col matches the denylist.
func (a *Assembler) Denied(col string) bool {
	for _, pat := range a.opts.Denylist {
		if pat != "" && strings.Contains(col, pat) {
			return true
		}
	}
	return false
}

// Add merges, tags and normalizes one raw batch. A rejected batch leaves the assembler unchanged
// and the error says why; the caller logs it and moves on.
func (a *Assembler) Add(sourceFile string, raw *Table) (BatchReport, error) {
	rep := BatchReport{SourceFile: sourceFile}
	if raw == nil || len(raw.Columns) == 0 {
		return rep, &SchemaError{Source: sourceFile, Column: "*", Reason: "batch has no header"}
	}

	t := raw
	if len(a.opts.Aliases) > 0 {
		t = applyAliases(t, a.opts.Aliases)
	}
	merged, mrep, err := MergeDraws(t)
	if err != nil {
		if se, ok := err.(*SchemaError); ok {
			se.Source = sourceFile
		}
		return rep, err
	}
	rep.Merge = mrep
	if mrep.UnmatchedSecond > 0 {
		log.Printf("%s: dropped %d second draw(s) without a first draw", sourceFile, mrep.UnmatchedSecond)
	}

	rep.Category = a.opts.Classify(sourceFile)
	tagged := TagBatch(merged, sourceFile, rep.Category)

	kept := make([]string, 0, len(tagged.Columns))
	for _, c := range tagged.Columns {
		if isCanonicalColumn(c) || !a.Denied(c) {
			kept = append(kept, c)
		}
	}
	tagged.Columns = kept

	draws, err := a.normalizer.Normalize(sourceFile, tagged)
	if err != nil {
		return rep, err
	}
	rep.Rows = len(draws)
	a.debugf("accepted %s: category=%s rows=%d columns=%v merge=%+v", sourceFile, rep.Category, rep.Rows, kept, mrep)
	a.batches = append(a.batches, batch{columns: kept, draws: draws})
	return rep, nil
}

// Len returns the number of accepted batches.
func (a *Assembler) Len() int {
	return len(a.batches)
}

// Corpus is the assembled, deduplicated table, newest draw first. It is not modified after
// Assemble returns.
type Corpus struct {
	Columns []string
	Draws   []Draw
}

// Assemble concatenates the accepted batches and returns the canonical corpus.
func (a *Assembler) Assemble() (*Corpus, error) {
	if len(a.batches) == 0 {
		return nil, ErrEmptyCorpus
	}

	columns := append([]string(nil), canonicalColumns...)
	seen := make(map[string]bool)
	for _, c := range columns {
		seen[c] = true
	}
	var total int
	for _, b := range a.batches {
		total += len(b.draws)
		for _, c := range b.columns {
			if !seen[c] && !a.Denied(c) {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}
	for _, c := range canonicalBallColumns {
		if !seen[c] {
			seen[c] = true
			columns = append(columns, c)
		}
	}

	var balls, extras []string
	for _, c := range columns {
		if isCanonicalColumn(c) {
			continue
		}
		if isBallColumn(c) {
			balls = append(balls, c)
		} else {
			extras = append(extras, c)
		}
	}

	all := make([]Draw, 0, total)
	for _, b := range a.batches {
		for _, d := range b.draws {
			cd, err := canonicalize(d)
			if err != nil {
				return nil, err
			}
			cd.Balls = make(map[string]int, len(balls))
			for _, c := range balls {
				cd.Balls[c] = d.Balls[c]
			}
			cd.Extras = make(map[string]string, len(extras))
			for _, c := range extras {
				if v, ok := d.Extras[c]; ok {
					cd.Extras[c] = v
				}
			}
			all = append(all, cd)
		}
	}

	sortByDateDesc(all)

	out := &Corpus{Columns: columns, Draws: make([]Draw, 0, len(all))}
	keys := make(map[DrawKey]bool, len(all))
	for _, d := range all {
		k := d.Key()
		if keys[k] {
			continue
		}
		keys[k] = true
		out.Draws = append(out.Draws, d)
	}
	a.debugf("assembled corpus: batches=%d rows=%d unique=%d columns=%d", len(a.batches), len(all), len(out.Draws), len(columns))
	return out, nil
}

// sortByDateDesc orders draws newest first. Draws of the same date keep their batch order.
func sortByDateDesc(draws []Draw) {
	iso := make(map[string]string)
	for _, d := range draws {
		if _, ok := iso[d.Date]; !ok {
			v, _ := ToISO(d.Date)
			iso[d.Date] = v
		}
	}
	sort.SliceStable(draws, func(i, j int) bool {
		return iso[draws[i].Date] > iso[draws[j].Date]
	})
}

// Period returns the oldest and newest draw dates.
func (c *Corpus) Period() (oldest, newest string) {
	if c == nil || len(c.Draws) == 0 {
		return "", ""
	}
	return c.Draws[len(c.Draws)-1].Date, c.Draws[0].Date
}

// Validate checks the corpus invariants before it is persisted.
func (c *Corpus) Validate() error {
	if c == nil || len(c.Draws) == 0 {
		return ErrEmptyCorpus
	}
	keys := make(map[DrawKey]bool, len(c.Draws))
	for i, d := range c.Draws {
		if keys[d.Key()] {
			return fmt.Errorf("corpus row %d: duplicate draw %+v", i+1, d.Key())
		}
		keys[d.Key()] = true
		if _, err := ToISO(d.Date); err != nil {
			return fmt.Errorf("corpus row %d: %w", i+1, err)
		}
		for col, v := range d.Balls {
			if v < 0 {
				return fmt.Errorf("corpus row %d: negative %s", i+1, col)
			}
		}
	}
	return nil
}
