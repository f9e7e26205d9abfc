package transformation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/preprocessing"
)

const header = "gender,race_ethnicity,parental_level_of_education,lunch,test_preparation_course,math_score,reading_score,writing_score\n"

var groups = []string{"group A", "group B", "group C"}

func writeCSV(t *testing.T, dir, name string, rows, offset int, extra string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < rows; i++ {
		k := i + offset
		gender := "female"
		if k%2 == 1 {
			gender = "male"
		}
		reading := 40 + k%50
		fmt.Fprintf(&b, "%s,%s,some college,standard,none,%d,%d,%d\n",
			gender, groups[k%len(groups)], reading+5, reading, reading-3)
	}
	b.WriteString(extra)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func configIn(t *testing.T) Config {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.TrainDataPath = writeCSV(t, dir, "train.csv", 40, 0, "")
	cfg.TestDataPath = writeCSV(t, dir, "test.csv", 10, 100, "male,group D,,standard,none,50,48,47\n")
	cfg.PreprocessorPath = filepath.Join(dir, "artifacts", "preprocessor.gob")
	return cfg
}

func TestRun_ProducesAlignedMatrices(t *testing.T) {
	cfg := configIn(t)

	data, err := Run(cfg)
	require.NoError(t, err)

	trRows, trCols := data.XTrain.Dims()
	teRows, teCols := data.XTest.Dims()
	assert.Equal(t, 40, trRows)
	assert.Equal(t, 11, teRows)
	assert.Equal(t, trCols, teCols)
	assert.Len(t, data.FeatureNames, trCols)
	assert.Equal(t, []string{"writing_score", "reading_score"}, data.FeatureNames[:2])

	yRows, yCols := data.YTrain.Dims()
	assert.Equal(t, 40, yRows)
	assert.Equal(t, 1, yCols)

	// 未知カテゴリ "group D" は ignore でゼロ列になる
	pre, err := model.LoadModelAs[*preprocessing.ColumnTransformer](data.PreprocessorPath)
	require.NoError(t, err)
	rows, err := preprocessing.ReadCSVFile(cfg.TestDataPath)
	require.NoError(t, err)
	again, err := pre.Transform(rows)
	require.NoError(t, err)
	assert.Equal(t, data.XTest.At(10, 0), again.At(10, 0))
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, c *Config)
		kind   errors.Kind
	}{
		{"target is a feature", func(t *testing.T, c *Config) { c.NumericColumns = append(c.NumericColumns, "math_score") }, errors.KindValidation},
		{"bad scaling", func(t *testing.T, c *Config) { c.Scaling = "robust" }, errors.KindValidation},
		{"missing column", func(t *testing.T, c *Config) { c.CategoricalColumns = []string{"school"} }, errors.KindValidation},
		{"missing train file", func(t *testing.T, c *Config) { c.TrainDataPath = filepath.Join(t.TempDir(), "nope.csv") }, errors.KindIO},
		{"missing target value", func(t *testing.T, c *Config) {
			c.TrainDataPath = writeCSV(t, t.TempDir(), "train.csv", 5, 0, "male,group A,some college,standard,none,,50,50\n")
		}, errors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configIn(t)
			tt.mutate(t, &cfg)

			_, err := Run(cfg)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}
