package loto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeYearIndex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2019-045", "2019-045"},
		{"20190045", "2019-045"},
		{"2019045", "2019-045"},
		{"19145", "2019-145"},
		{"2231", "2023-231"},
		{" 2019045 ", "2019-045"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeYearIndex(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := NormalizeYearIndex(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "canonical value must be a fixed point")
		})
	}
}

func TestNormalizeYearIndex_UnknownLengths(t *testing.T) {
	for _, in := range []string{"", "123", "201945", "2019-0451"} {
		_, err := NormalizeYearIndex(in)
		assert.Error(t, err, "length %d", len(in))
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"20231225", "25/12/2023"},
		{"25122023", "25/12/2023"},
		{"25/12/2023", "25/12/2023"},
		{"20190714", "14/07/2019"},
	}
	for _, tt := range tests {
		got, err := NormalizeDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"2023-12-25", "31/02/2023", "20231332", "", "hier"} {
		_, err := NormalizeDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestHarmonizeDay(t *testing.T) {
	assert.Equal(t, "LUNDI", HarmonizeDay("LU"))
	assert.Equal(t, "LUNDI", HarmonizeDay("LUNDI"))
	assert.Equal(t, "DIMANCHE", HarmonizeDay("DI"))
	assert.Equal(t, "XX", HarmonizeDay("XX"))
}

func TestToISO(t *testing.T) {
	got, err := ToISO("14/07/2019")
	require.NoError(t, err)
	assert.Equal(t, "2019-07-14", got)

	_, err = ToISO("2019-07-14")
	assert.Error(t, err)
}

func TestClassifyCategory(t *testing.T) {
	assert.Equal(t, CategorySuperLoto, ClassifyCategory("loto_s_2020.csv"))
	assert.Equal(t, CategoryLoto, ClassifyCategory("loto_2020.csv"))
	assert.Equal(t, CategoryGrandLoto, ClassifyCategory("loto_noel.csv"))
	assert.Equal(t, CategoryGrandLoto, ClassifyCategory("grandloto_201912.csv"))
	assert.Equal(t, CategorySuperLoto, ClassifyCategory("superloto_201907.csv"))
	// The heuristic misreads any incidental "s".
	assert.Equal(t, CategorySuperLoto, ClassifyCategory("loto_special_noel.csv"))
}

func TestManifestClassifier(t *testing.T) {
	classify := ManifestClassifier(map[string]Category{
		"loto_":      CategoryLoto,
		"loto_noel_": CategoryGrandLoto,
	}, nil)

	assert.Equal(t, CategoryGrandLoto, classify("loto_noel_2021.csv"), "longest token wins")
	assert.Equal(t, CategoryLoto, classify("loto_special.csv"))
	assert.Equal(t, CategorySuperLoto, classify("super_2019.csv"), "falls back to the heuristic")
}

func TestParseBall(t *testing.T) {
	for in, want := range map[string]int{"": 0, "nan": 0, "12": 12, " 7 ": 7, "12.0": 12, "0": 0} {
		got, err := parseBall(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"-1", "1.5", "douze"} {
		_, err := parseBall(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	tbl := NewTable(ColYearIndex, ColWeekday, ColDate, "boule_1", "boule_2", ColChance, "devise")
	tbl.AddRow("2019045", "MA", "20191105", "3", "", "7", "eur")
	tbl.AddRow("19046", "SAMEDI", "09/11/2019", "11", "12")

	draws, err := NewNormalizer(nil).Normalize("loto_201911.csv", tbl)
	require.NoError(t, err)
	require.Len(t, draws, 2)

	d := draws[0]
	assert.Equal(t, "loto_201911.csv", d.SourceFile)
	assert.Equal(t, CategoryLoto, d.Category)
	assert.Equal(t, "2019-045", d.YearIndex)
	assert.Equal(t, "MARDI", d.Weekday)
	assert.Equal(t, "05/11/2019", d.Date)
	assert.Equal(t, map[string]int{"boule_1": 3, "boule_2": 0, ColChance: 7}, d.Balls)
	assert.Equal(t, map[string]string{"devise": "eur"}, d.Extras)

	assert.Equal(t, "2019-046", draws[1].YearIndex)
	assert.Equal(t, 0, draws[1].Ball(ColChance))
}

func TestNormalizer_RejectsBatch(t *testing.T) {
	tbl := NewTable(ColYearIndex, ColWeekday, ColDate, "boule_1")
	tbl.AddRow("2019045", "MA", "20191105", "3")
	tbl.AddRow("123", "ME", "20191106", "4")

	draws, err := NewNormalizer(nil).Normalize("loto_201911.csv", tbl)
	require.Error(t, err)
	assert.Nil(t, draws)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "loto_201911.csv", se.Source)
	assert.Equal(t, 2, se.Row)
	assert.Equal(t, ColYearIndex, se.Column)
	assert.Equal(t, "123", se.Value)
}

func TestNormalizer_MissingColumn(t *testing.T) {
	tbl := NewTable(ColYearIndex, ColWeekday, "boule_1")
	tbl.AddRow("2019045", "MA", "3")

	_, err := NewNormalizer(nil).Normalize("loto.csv", tbl)
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
	assert.Contains(t, err.Error(), ColDate)
}
