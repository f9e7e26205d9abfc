package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/preprocessing"
)

func writeSource(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("gender,lunch,reading_score,writing_score,math_score\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "g%d,standard,%d,%d,%d\n", i%2, 50+i, 40+i, 45+i)
	}
	path := filepath.Join(t.TempDir(), "stud.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func configFor(t *testing.T, source string) Config {
	dir := filepath.Join(t.TempDir(), "artifacts", "nested")
	cfg := DefaultConfig()
	cfg.SourcePath = source
	cfg.RawDataPath = filepath.Join(dir, "data.csv")
	cfg.TrainDataPath = filepath.Join(dir, "train.csv")
	cfg.TestDataPath = filepath.Join(dir, "test.csv")
	return cfg
}

func TestRun_SplitsAndWrites(t *testing.T) {
	cfg := configFor(t, writeSource(t, 50))

	out, err := Run(cfg)
	require.NoError(t, err)
	assert.Equal(t, 40, out.TrainRows)
	assert.Equal(t, 10, out.TestRows)

	raw, err := preprocessing.ReadCSVFile(cfg.RawDataPath)
	require.NoError(t, err)
	train, err := preprocessing.ReadCSVFile(out.TrainDataPath)
	require.NoError(t, err)
	test, err := preprocessing.ReadCSVFile(out.TestDataPath)
	require.NoError(t, err)

	assert.Equal(t, 50, raw.Len())
	assert.Equal(t, raw.Columns, train.Columns)

	// train と test は元の行をちょうど一度ずつ含む
	var got []string
	for _, r := range append(train.Rows, test.Rows...) {
		got = append(got, strings.Join(r, ","))
	}
	var want []string
	for _, r := range raw.Rows {
		want = append(want, strings.Join(r, ","))
	}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestRun_IsReproducible(t *testing.T) {
	source := writeSource(t, 30)
	a, b := configFor(t, source), configFor(t, source)

	_, err := Run(a)
	require.NoError(t, err)
	_, err = Run(b)
	require.NoError(t, err)

	ta, err := os.ReadFile(a.TestDataPath)
	require.NoError(t, err)
	tb, err := os.ReadFile(b.TestDataPath)
	require.NoError(t, err)
	assert.Equal(t, string(ta), string(tb))
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		kind   errors.Kind
	}{
		{"test size zero", func(c *Config) { c.TestSize = 0 }, errors.KindValidation},
		{"test size one", func(c *Config) { c.TestSize = 1 }, errors.KindValidation},
		{"empty train path", func(c *Config) { c.TrainDataPath = "" }, errors.KindValidation},
		{"missing source", func(c *Config) { c.SourcePath = filepath.Join(t.TempDir(), "none.csv") }, errors.KindIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configFor(t, writeSource(t, 10))
			tt.mutate(&cfg)

			_, err := Run(cfg)
			require.Error(t, err)
			var stage *errors.StageError
			require.True(t, errors.As(err, &stage))
			assert.Equal(t, tt.kind, stage.Kind)
			assert.NotEmpty(t, err.Error())
		})
	}
}
