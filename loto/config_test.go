package loto

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
page_url: https://example.test/history
user_agent: my-agent
http_timeout: 30s
download_interval: 250ms
input_globs:
  - ./archives/**/*.zip
dataset_dir: ./dataset
output_csv: out/loto.csv
database: loto.db
denylist: [devise, rapport]
column_aliases:
  numero_tirage: annee_numero_de_tirage
categories:
  grandloto: grand-loto
reports:
  - name: chance
    columns: [numero_chance]
    categories: [loto]
    date_min: 01/01/2020
timeout: 5m
debug: true
serve_addr: 127.0.0.1:9000
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/history", cfg.PageURL)
	assert.Equal(t, "my-agent", cfg.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.DownloadInterval)
	assert.Equal(t, []string{"./archives/**/*.zip"}, cfg.InputGlobs)
	assert.Equal(t, "./dataset", cfg.DatasetDir)
	assert.Equal(t, "out/loto.csv", cfg.OutputCSV)
	assert.Equal(t, "loto.db", cfg.Database)
	assert.Equal(t, []string{"devise", "rapport"}, cfg.Denylist.Patterns())
	assert.Equal(t, map[string]string{"numero_tirage": ColYearIndex}, cfg.ColumnAliases)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "127.0.0.1:9000", cfg.ServeAddr)

	reports, err := cfg.BuildReports()
	require.NoError(t, err)
	assert.Equal(t, []Report{{
		Name:  "chance",
		Query: StatsQuery{Columns: []string{ColChance}, Categories: []Category{CategoryLoto}, DateMin: "01/01/2020"},
	}}, reports)

	classify, err := cfg.Classifier()
	require.NoError(t, err)
	assert.Equal(t, CategoryGrandLoto, classify("grandloto_2019.csv"))
	assert.Equal(t, CategorySuperLoto, classify("superloto_2019.csv"))
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "denylist: {devise: true}\n"))
	assert.Error(t, err)
}

func TestDenylistConfig(t *testing.T) {
	var cfg struct {
		Denylist DenylistConfig `yaml:"denylist"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`denylist: "Unnamed|devise| _x |"`), &cfg))
	assert.Equal(t, []string{"Unnamed", "devise", "_x"}, cfg.Denylist.Patterns())

	cfg.Denylist = DenylistConfig{}
	require.NoError(t, yaml.Unmarshal([]byte("denylist: []"), &cfg))
	assert.True(t, cfg.Denylist.Set)
	assert.Empty(t, cfg.Denylist.Patterns())

	assert.Equal(t, DefaultDenylist, DenylistConfig{}.Patterns())
}

func TestBuildReports_Defaults(t *testing.T) {
	reports, err := (&FileConfig{}).BuildReports()
	require.NoError(t, err)
	assert.Equal(t, DefaultReports(), reports)
}

func TestBuildReports_Invalid(t *testing.T) {
	for name, rc := range map[string]ReportConfig{
		"no columns":       {Name: "x"},
		"unknown category": {Columns: []string{"boule_1"}, Categories: []string{"keno"}},
		"bad date":         {Columns: []string{"boule_1"}, DateMin: "2020-01-01"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := (&FileConfig{Reports: []ReportConfig{rc}}).BuildReports()
			assert.Error(t, err)
		})
	}

	reports, err := (&FileConfig{Reports: []ReportConfig{{Columns: []string{"boule_1", "boule_2"}}}}).BuildReports()
	require.NoError(t, err)
	assert.Equal(t, "boule_1,boule_2", reports[0].Name)
}

func TestClassifier_UnknownCategory(t *testing.T) {
	_, err := (&FileConfig{Categories: map[string]string{"keno": "keno"}}).Classifier()
	assert.Error(t, err)
}
