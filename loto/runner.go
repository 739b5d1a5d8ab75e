package loto

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"
)

type RunnerConfig struct {
	Source Source
	// Sink receives the corpus once it is assembled and validated. Required.
	Sink Sink
	// Store records the ingestion ledger when set.
	Store     *Store
	Assembler AssemblerOptions
	Reports   []Report
	// ReportOut receives the report tables (default os.Stdout).
	ReportOut io.Writer
	Timeout   time.Duration
	Debug     bool
}

type Runner struct {
	cfg RunnerConfig
}

// BatchFailure is a batch left out of the corpus.
type BatchFailure struct {
	Location string
	Err      error
}

type ReportResult struct {
	Name  string
	Stats []Frequency
}

type RunResult struct {
	Corpus   *Corpus
	Accepted []BatchReport
	Failed   []BatchFailure
	Reports  []ReportResult
}

type runStats struct {
	Discovered      int
	Fetched         int
	RetrievalErrors int
	SchemaErrors    int
	Accepted        int
	UnmatchedSecond int
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("Source is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("Sink is required")
	}
	if cfg.ReportOut == nil {
		cfg.ReportOut = os.Stdout
	}
	cfg.Assembler.Debug = cfg.Assembler.Debug || cfg.Debug
	return &Runner{cfg: cfg}, nil
}

func (r *Runner) debugf(format string, args ...any) {
	if r == nil || !r.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// RunOnce rebuilds the corpus from every discoverable archive, persists it and prints the reports.
// Archives that cannot be fetched or normalized are logged and skipped; the run only fails when
// discovery fails, when no batch survives, or when persistence fails.
func (r *Runner) RunOnce(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	stats := &runStats{}
	res := &RunResult{}

	locations, err := r.cfg.Source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover archives: %w", err)
	}
	stats.Discovered = len(locations)
	log.Printf("%d archive link(s) found", len(locations))

	asm := NewAssembler(r.cfg.Assembler)
	for i, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.debugf("fetch %d/%d: %s", i+1, len(locations), loc)
		b, err := r.cfg.Source.Fetch(ctx, loc)
		if err != nil {
			stats.RetrievalErrors++
			log.Printf("skip %s: %v", loc, err)
			res.Failed = append(res.Failed, BatchFailure{Location: loc, Err: err})
			r.record(ctx, ProcessedArchive{Location: loc, Status: ArchiveRetrievalError, LastError: err.Error()})
			continue
		}
		stats.Fetched++
		r.debugf("fetched %s: file=%s rows=%d columns=%v", loc, b.SourceFile, len(b.Table.Rows), b.Table.Columns)

		rep, err := asm.Add(b.SourceFile, b.Table)
		if err != nil {
			stats.SchemaErrors++
			log.Printf("reject %s (%s): %v", b.SourceFile, loc, err)
			res.Failed = append(res.Failed, BatchFailure{Location: loc, Err: err})
			r.record(ctx, ProcessedArchive{
				Location:   loc,
				SourceFile: b.SourceFile,
				SHA256:     b.Digest,
				Status:     ArchiveSchemaError,
				LastError:  err.Error(),
			})
			continue
		}
		stats.Accepted++
		stats.UnmatchedSecond += rep.Merge.UnmatchedSecond
		res.Accepted = append(res.Accepted, rep)
		r.record(ctx, ProcessedArchive{
			Location:        loc,
			SourceFile:      b.SourceFile,
			SHA256:          b.Digest,
			Category:        string(rep.Category),
			Rows:            rep.Rows,
			UnmatchedSecond: rep.Merge.UnmatchedSecond,
			Status:          ArchiveOK,
		})
	}

	corpus, err := asm.Assemble()
	if err != nil {
		return nil, err
	}
	if err := corpus.Validate(); err != nil {
		return nil, fmt.Errorf("validate corpus: %w", err)
	}
	if err := r.cfg.Sink.Persist(ctx, corpus); err != nil {
		return nil, fmt.Errorf("persist corpus: %w", err)
	}
	res.Corpus = corpus

	oldest, newest := corpus.Period()
	log.Printf("corpus persisted: %d draw(s), period %s -> %s", len(corpus.Draws), oldest, newest)
	r.debugf("run stats: %+v elapsed=%s", *stats, time.Since(start))

	for _, rep := range r.cfg.Reports {
		freqs, err := ComputeStats(corpus, rep.Query)
		if err != nil {
			log.Printf("report %q: %v", rep.Name, err)
			continue
		}
		res.Reports = append(res.Reports, ReportResult{Name: rep.Name, Stats: freqs})
		if err := WriteReport(r.cfg.ReportOut, rep.Name, freqs); err != nil {
			return res, fmt.Errorf("write report %q: %w", rep.Name, err)
		}
	}
	return res, nil
}

func (r *Runner) record(ctx context.Context, rec ProcessedArchive) {
	if r.cfg.Store == nil {
		return
	}
	if err := r.cfg.Store.RecordArchive(ctx, rec); err != nil {
		log.Printf("ledger %s: %v", rec.Location, err)
	}
}

// WriteReport prints one statistics table, ordered by number.
func WriteReport(w io.Writer, name string, freqs []Frequency) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\nStatistiques: %s\n", name)
	fmt.Fprintln(tw, "numero\tnombre_sorties\t%_sorties\tderniere_sortie\t")
	for _, f := range freqs {
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%s\t\n", f.Number, f.Count, f.Percent, f.LastDrawn)
	}
	return tw.Flush()
}
