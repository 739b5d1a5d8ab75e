package loto

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(cat Category, yearIndex, weekday, date string, balls map[string]int) Draw {
	return Draw{
		SourceFile: "test.csv",
		Category:   cat,
		YearIndex:  yearIndex,
		Weekday:    weekday,
		Date:       date,
		Balls:      balls,
		Extras:     map[string]string{},
	}
}

func statsCorpus() *Corpus {
	return &Corpus{
		Columns: append(append([]string(nil), canonicalColumns...), canonicalBallColumns...),
		Draws: []Draw{
			draw(CategoryLoto, "2020-003", "SAMEDI", "04/01/2020", map[string]int{"boule_1": 7, ColChance: 2}),
			draw(CategorySuperLoto, "2020-002", "VENDREDI", "03/01/2020", map[string]int{"boule_1": 7, ColChance: 5}),
			draw(CategoryLoto, "2020-001", "MERCREDI", "01/01/2020", map[string]int{"boule_1": 12, ColChance: 2}),
		},
	}
}

func TestComputeStats_FiltersCategories(t *testing.T) {
	got, err := ComputeStats(statsCorpus(), StatsQuery{Columns: []string{"boule_1"}, Categories: []Category{CategoryLoto}})
	require.NoError(t, err)
	assert.Equal(t, []Frequency{
		{Number: 7, Count: 1, Percent: 50, LastDrawn: "04/01/2020"},
		{Number: 12, Count: 1, Percent: 50, LastDrawn: "01/01/2020"},
	}, got)
}

func TestComputeStats_AllCategoriesByDefault(t *testing.T) {
	got, err := ComputeStats(statsCorpus(), StatsQuery{Columns: []string{"boule_1"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Frequency{Number: 7, Count: 2, Percent: 66.67, LastDrawn: "04/01/2020"}, got[0])
	assert.Equal(t, Frequency{Number: 12, Count: 1, Percent: 33.33, LastDrawn: "01/01/2020"}, got[1])
}

func TestComputeStats_DateWindowIsInclusive(t *testing.T) {
	got, err := ComputeStats(statsCorpus(), StatsQuery{
		Columns: []string{ColChance},
		DateMin: "01/01/2020",
		DateMax: "03/01/2020",
	})
	require.NoError(t, err)
	assert.Equal(t, []Frequency{
		{Number: 2, Count: 1, Percent: 50, LastDrawn: "01/01/2020"},
		{Number: 5, Count: 1, Percent: 50, LastDrawn: "03/01/2020"},
	}, got)
}

func TestComputeStats_EmptySelection(t *testing.T) {
	got, err := ComputeStats(statsCorpus(), StatsQuery{Columns: []string{"boule_1"}, Categories: []Category{CategoryGrandLoto}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = ComputeStats(statsCorpus(), StatsQuery{Columns: SecondDrawColumns})
	require.NoError(t, err)
	assert.Empty(t, got, "zero balls are not outcomes")

	got, err = ComputeStats(statsCorpus(), StatsQuery{Columns: []string{"boule_1"}, DateMin: "01/01/2030"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestComputeStats_InvalidBounds(t *testing.T) {
	_, err := ComputeStats(statsCorpus(), StatsQuery{Columns: []string{"boule_1"}, DateMin: "2020-01-01"})
	assert.Error(t, err)
	_, err = ComputeStats(statsCorpus(), StatsQuery{Columns: []string{"boule_1"}, DateMax: "32/01/2020"})
	assert.Error(t, err)
}

func TestComputeStats_PercentagesSumTo100(t *testing.T) {
	c := &Corpus{}
	dates := []string{"07/01/2020", "06/01/2020", "05/01/2020", "04/01/2020", "03/01/2020", "02/01/2020", "01/01/2020"}
	for i, date := range dates {
		balls := map[string]int{}
		for j, col := range FirstDrawColumns {
			balls[col] = (i*7+j*11)%49 + 1
		}
		c.Draws = append(c.Draws, draw(CategoryLoto, "2020-00"+string(rune('1'+i)), "LUNDI", date, balls))
	}

	got, err := ComputeStats(c, StatsQuery{Columns: FirstDrawColumns})
	require.NoError(t, err)

	var sum float64
	var count int
	for i, f := range got {
		sum += f.Percent
		count += f.Count
		if i > 0 {
			assert.Less(t, got[i-1].Number, f.Number)
		}
	}
	assert.Equal(t, len(dates)*len(FirstDrawColumns), count)
	assert.InDelta(t, 100.0, sum, 0.005*float64(len(got)))
}

func TestComputeStats_ConcurrentReaders(t *testing.T) {
	c := statsCorpus()
	want, err := ComputeStats(c, StatsQuery{Columns: []string{"boule_1", ColChance}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]Frequency, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = ComputeStats(c, StatsQuery{Columns: []string{"boule_1", ColChance}})
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestComputeStats_NilCorpus(t *testing.T) {
	got, err := ComputeStats(nil, StatsQuery{Columns: FirstDrawColumns})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDefaultReports(t *testing.T) {
	reports := DefaultReports()
	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.Equal(t, DefaultWindowStart, r.Query.DateMin)
		assert.Equal(t, []Category{CategoryLoto, CategorySuperLoto}, r.Query.Categories)
	}
	assert.Equal(t, SecondDrawColumns, reports[2].Query.Columns)
}
