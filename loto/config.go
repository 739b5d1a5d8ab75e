package loto

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DenylistConfig accepts either:
//  1. list form (preferred):
//     denylist: [devise, rapport, _x, _y]
//  2. the single pattern string of the legacy script:
//     denylist: "devise|rapport|_x|_y"
type DenylistConfig struct {
	Items []string
	// Set tells an explicit empty list from an absent key.
	Set bool
}

func (d *DenylistConfig) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.ScalarNode:
		d.Set = true
		d.Items = nil
		for _, p := range strings.Split(value.Value, "|") {
			if p = strings.TrimSpace(p); p != "" {
				d.Items = append(d.Items, p)
			}
		}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		d.Set = true
		d.Items = make([]string, 0, len(items))
		for _, p := range items {
			if p = strings.TrimSpace(p); p != "" {
				d.Items = append(d.Items, p)
			}
		}
		return nil
	default:
		return fmt.Errorf("denylist: expected a list or a string, line %d", value.Line)
	}
}

// Patterns returns the configured denylist, or DefaultDenylist when none was given.
func (d DenylistConfig) Patterns() []string {
	if !d.Set {
		return DefaultDenylist
	}
	return append([]string{}, d.Items...)
}

type ReportConfig struct {
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	Categories []string `yaml:"categories"`
	DateMin    string   `yaml:"date_min"`
	DateMax    string   `yaml:"date_max"`
}

type FileConfig struct {
	// Archive source. InputGlobs switches to local files and skips the page scrape.
	PageURL          string        `yaml:"page_url"`
	UserAgent        string        `yaml:"user_agent"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	DownloadInterval time.Duration `yaml:"download_interval"`
	InputGlobs       []string      `yaml:"input_globs"`
	DatasetDir       string        `yaml:"dataset_dir"`

	// Outputs. An empty Database disables the SQLite store and the ledger.
	OutputCSV string `yaml:"output_csv"`
	Database  string `yaml:"database"`

	Denylist DenylistConfig `yaml:"denylist"`
	// ColumnAliases maps legacy header names to current ones.
	ColumnAliases map[string]string `yaml:"column_aliases"`
	// Categories maps file-name tokens to a category ahead of the filename heuristic.
	Categories map[string]string `yaml:"categories"`
	Reports    []ReportConfig    `yaml:"reports"`

	Timeout   time.Duration `yaml:"timeout"`
	Debug     bool          `yaml:"debug"`
	ServeAddr string        `yaml:"serve_addr"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Classifier builds the category classifier: the manifest when one is configured, the filename
// heuristic otherwise.
func (c *FileConfig) Classifier() (Classifier, error) {
	if len(c.Categories) == 0 {
		return ClassifyCategory, nil
	}
	manifest := make(map[string]Category, len(c.Categories))
	for tok, name := range c.Categories {
		cat, ok := ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("categories[%q]: unknown category %q", tok, name)
		}
		manifest[tok] = cat
	}
	return ManifestClassifier(manifest, ClassifyCategory), nil
}

// BuildReports converts the configured reports, or returns DefaultReports when none are set.
func (c *FileConfig) BuildReports() ([]Report, error) {
	if len(c.Reports) == 0 {
		return DefaultReports(), nil
	}
	out := make([]Report, 0, len(c.Reports))
	for i, rc := range c.Reports {
		r, err := rc.toReport()
		if err != nil {
			return nil, fmt.Errorf("reports[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (rc ReportConfig) toReport() (Report, error) {
	if len(rc.Columns) == 0 {
		return Report{}, fmt.Errorf("columns is required")
	}
	q := StatsQuery{Columns: rc.Columns, DateMin: rc.DateMin, DateMax: rc.DateMax}
	for _, name := range rc.Categories {
		cat, ok := ParseCategory(name)
		if !ok {
			return Report{}, fmt.Errorf("unknown category %q", name)
		}
		q.Categories = append(q.Categories, cat)
	}
	for _, d := range []string{rc.DateMin, rc.DateMax} {
		if d == "" {
			continue
		}
		if _, err := ToISO(d); err != nil {
			return Report{}, err
		}
	}
	name := rc.Name
	if name == "" {
		name = strings.Join(rc.Columns, ",")
	}
	return Report{Name: name, Query: q}, nil
}
