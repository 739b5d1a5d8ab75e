package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"loto-archiver/loto"
)

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var configPath string
	var pageURL string
	var userAgent string
	var inputGlobs multiFlag
	var datasetDir string
	var outputCSV string
	var dbPath string
	var debug bool
	var timeout time.Duration
	var httpTimeout time.Duration
	var downloadInterval time.Duration
	var serve bool
	var serveAddr string

	flag.StringVar(&configPath, "config", "", "YAML config file path.")
	flag.StringVar(&pageURL, "page-url", loto.DefaultPageURL, "History page listing the draw archives.")
	flag.StringVar(&userAgent, "user-agent", loto.DefaultUserAgent, "User-Agent sent with every request.")
	flag.Var(&inputGlobs, "input-glob", "Read local .zip/.csv archives instead of the history page. Can be repeated.")
	flag.StringVar(&datasetDir, "dataset-dir", "", "Keep a copy of every extracted CSV in this folder.")
	flag.StringVar(&outputCSV, "out", "loto_stats.csv", "Output CSV path (overwritten on success).")
	flag.StringVar(&dbPath, "db", "", "SQLite database path for the corpus and the ingestion ledger.")
	flag.BoolVar(&debug, "debug", false, "Enable debug logs.")
	flag.DurationVar(&timeout, "timeout", 0, "Overall timeout for one run (e.g. 5m).")
	flag.DurationVar(&httpTimeout, "http-timeout", 60*time.Second, "Timeout of each HTTP request.")
	flag.DurationVar(&downloadInterval, "download-interval", time.Second, "Minimum delay between two archive downloads.")
	flag.BoolVar(&serve, "serve", false, "Serve statistics over HTTP from the corpus stored in --db instead of ingesting.")
	flag.StringVar(&serveAddr, "serve-addr", ":8080", "Listen address of --serve.")
	flag.Parse()

	visited := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	fileCfg := &loto.FileConfig{}
	if configPath != "" {
		cfg, err := loto.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		fileCfg = cfg
	}

	// Merge config + CLI overrides
	if visited["page-url"] || fileCfg.PageURL == "" {
		fileCfg.PageURL = pageURL
	}
	if visited["user-agent"] || fileCfg.UserAgent == "" {
		fileCfg.UserAgent = userAgent
	}
	if visited["input-glob"] {
		fileCfg.InputGlobs = inputGlobs
	}
	if visited["dataset-dir"] {
		fileCfg.DatasetDir = datasetDir
	}
	if visited["out"] || fileCfg.OutputCSV == "" {
		fileCfg.OutputCSV = outputCSV
	}
	if visited["db"] {
		fileCfg.Database = dbPath
	}
	if visited["debug"] {
		fileCfg.Debug = debug
	}
	if visited["timeout"] {
		fileCfg.Timeout = timeout
	}
	if visited["http-timeout"] || fileCfg.HTTPTimeout == 0 {
		fileCfg.HTTPTimeout = httpTimeout
	}
	if visited["download-interval"] || fileCfg.DownloadInterval == 0 {
		fileCfg.DownloadInterval = downloadInterval
	}
	if visited["serve-addr"] || fileCfg.ServeAddr == "" {
		fileCfg.ServeAddr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var store *loto.Store
	if strings.TrimSpace(fileCfg.Database) != "" {
		// Serve mode only reads; it must not migrate the schema.
		open := loto.OpenDB
		if serve {
			open = loto.OpenQueryDB
		}
		db, err := open(fileCfg.Database)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		store = loto.NewStore(db)
		defer store.Close()
	}

	if serve {
		if store == nil {
			fmt.Fprintln(os.Stderr, "--serve needs a database (use --db or config.yaml database)")
			os.Exit(2)
		}
		if err := runServer(ctx, store, fileCfg); err != nil {
			log.Fatalf("serve: %v", err)
		}
		return
	}

	classify, err := fileCfg.Classifier()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	reports, err := fileCfg.BuildReports()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var source loto.Source
	if len(fileCfg.InputGlobs) > 0 {
		source = &loto.DirSource{Globs: fileCfg.InputGlobs, DatasetDir: fileCfg.DatasetDir}
	} else {
		source = loto.NewHTTPSource(loto.HTTPSourceOptions{
			PageURL:          fileCfg.PageURL,
			UserAgent:        fileCfg.UserAgent,
			Timeout:          fileCfg.HTTPTimeout,
			DownloadInterval: fileCfg.DownloadInterval,
			DatasetDir:       fileCfg.DatasetDir,
		})
	}

	runner, err := loto.NewRunner(loto.RunnerConfig{
		Source: source,
		Sink:   loto.OutputSinks(store, &loto.CSVSink{Path: fileCfg.OutputCSV}),
		Store:  store,
		Assembler: loto.AssemblerOptions{
			Denylist: fileCfg.Denylist.Patterns(),
			Classify: classify,
			Aliases:  fileCfg.ColumnAliases,
		},
		Reports: reports,
		Timeout: fileCfg.Timeout,
		Debug:   fileCfg.Debug,
	})
	if err != nil {
		log.Fatalf("init runner: %v", err)
	}

	if _, err := runner.RunOnce(ctx); err != nil {
		if errors.Is(err, loto.ErrEmptyCorpus) {
			log.Fatalf("nothing written: %v", err)
		}
		log.Fatalf("run: %v", err)
	}
	log.Printf("cleaned file -> %s", fileCfg.OutputCSV)
}

func runServer(ctx context.Context, store *loto.Store, cfg *loto.FileConfig) error {
	corpus, err := store.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	oldest, newest := corpus.Period()
	log.Printf("serving %d draw(s) (%s -> %s) on %s", len(corpus.Draws), oldest, newest, cfg.ServeAddr)
	return loto.NewServer(corpus, store, cfg.Debug).Serve(ctx, cfg.ServeAddr)
}
