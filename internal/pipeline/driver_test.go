package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/enade/internal/config"
	"github.com/JonMunkholm/enade/internal/core"
	_ "github.com/JonMunkholm/enade/internal/core/formats"
)

const currentHeader = "NU_ANO;CO_IES;CO_GRUPO;CO_CURSO;CO_MODALIDADE;CO_MUNIC_CURSO;CO_UF_CURSO;NU_IDADE;TP_SEXO;TP_INSCRICAO;TP_PRES;NT_GER;NT_FG;NT_CE"

// fixtureFiles writes two yearly files to dir: 2015 keeps two rows, 2017
// keeps one.
func fixtureFiles(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"ENADE_2015.csv": currentHeader + "\n" +
			"2015;569;2;12345;1;1501402;15;23;M;0;555;56.3;60.1;54.2\n" +
			"2015;830;5;;0;1600303;16;31;F;1;555;;40;\n" +
			"2015;9999;5;1;1;1600303;16;31;F;1;555;10;10;10\n",
		"ENADE_2017.csv": currentHeader + "\n" +
			"2017;569;2;12345;1;1501402;15;22;F;1;555;70,5;71;70\n" +
			"2017;569;2;12345;1;1501402;15;22;F;1;222;;;\n",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
}

func testPlan(t *testing.T, modify func(*config.Config)) (Plan, string) {
	t.Helper()
	dir := t.TempDir()
	fixtureFiles(t, dir)

	cfg := config.Default()
	cfg.Source.Dir = dir
	cfg.Output.Path = filepath.Join(dir, "out", "enade.csv")
	if modify != nil {
		modify(cfg)
	}

	plan, err := PlanFromConfig(cfg, nil)
	require.NoError(t, err)
	return plan, cfg.Output.Path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestDriver_Run(t *testing.T) {
	plan, out := testPlan(t, nil)

	report, err := NewDriver(nil).Run(context.Background(), plan)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Files, 2)
	assert.Equal(t, 2015, report.Files[0].Year)
	assert.Equal(t, "current", report.Files[0].Layout)
	assert.Equal(t, 3, report.Files[0].Extract.Rows)
	assert.Equal(t, 1, report.Files[0].Transform.NotEligible)
	assert.Equal(t, 1, report.Files[1].Transform.NotPresent)

	assert.Equal(t, 3, report.Transform.Kept)
	require.NotNil(t, report.Output)
	assert.Equal(t, 3, report.Output.Rows)
	assert.Equal(t, out, report.Output.Path)

	lines := readLines(t, out)
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "2015;569;UFPA"))
	assert.True(t, strings.HasPrefix(lines[2], "2015;830;UNIFAP"))
	assert.True(t, strings.HasPrefix(lines[3], "2017;569;UFPA"))
	assert.Contains(t, lines[3], ";Concluinte;", "2017 enrollment code 1")
	assert.Contains(t, lines[3], ";70,5;", "2017 comma decimal")
}

func TestDriver_WorkersKeepFileOrder(t *testing.T) {
	seq, seqOut := testPlan(t, nil)
	par, parOut := testPlan(t, func(c *config.Config) { c.Pipeline.Workers = 4 })

	_, err := NewDriver(nil).Run(context.Background(), seq)
	require.NoError(t, err)
	_, err = NewDriver(nil).Run(context.Background(), par)
	require.NoError(t, err)

	assert.Equal(t, readLines(t, seqOut), readLines(t, parOut))
}

func TestDriver_FailureAbortsBeforeOutput(t *testing.T) {
	plan, out := testPlan(t, nil)
	plan.Files = append(plan.Files, FileSpec{Path: filepath.Join(t.TempDir(), "ENADE_2018.csv")})

	report, err := NewDriver(nil).Run(context.Background(), plan)
	require.ErrorIs(t, err, core.ErrSourceUnreadable)
	assert.Equal(t, "ETL001", core.MapError(err).Code)

	assert.Nil(t, report.Output)
	assert.NoFileExists(t, out)
	assert.NotEmpty(t, report.Files[2].Error)
}

func TestDriver_ContinueOnError(t *testing.T) {
	plan, out := testPlan(t, func(c *config.Config) { c.Pipeline.ContinueOnError = true })
	plan.Files = append(plan.Files, FileSpec{Path: filepath.Join(t.TempDir(), "ENADE_2018.csv")})

	report, err := NewDriver(nil).Run(context.Background(), plan)
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Path, "ENADE_2018.csv")
	assert.Len(t, readLines(t, out), 4)
}

func TestDriver_ContinueOnError_AllFailedKeepsOutput(t *testing.T) {
	plan, out := testPlan(t, func(c *config.Config) { c.Pipeline.ContinueOnError = true })
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0o755))
	require.NoError(t, os.WriteFile(out, []byte("previous\n"), 0o644))

	missing := t.TempDir()
	plan.Files = []FileSpec{
		{Path: filepath.Join(missing, "ENADE_2018.csv")},
		{Path: filepath.Join(missing, "ENADE_2019.csv")},
	}

	report, err := NewDriver(nil).Run(context.Background(), plan)
	require.ErrorIs(t, err, core.ErrAllFilesFailed)
	assert.Equal(t, "ETL007", core.MapError(err).Code)

	assert.Len(t, report.Failed(), 2)
	assert.Nil(t, report.Output)
	assert.Equal(t, []string{"previous"}, readLines(t, out))
}

func TestDriver_DimensionFailure(t *testing.T) {
	plan, _ := testPlan(t, nil)
	plan.Dimensions.Groups = filepath.Join(t.TempDir(), "missing.csv")

	_, err := NewDriver(nil).Run(context.Background(), plan)
	require.ErrorIs(t, err, core.ErrDimensionUnreadable)
}

func TestDriver_NoFiles(t *testing.T) {
	_, err := NewDriver(nil).Run(context.Background(), Plan{Target: core.Target{Format: "csv"}})
	require.ErrorIs(t, err, core.ErrNoSourceFiles)
}

func TestDriver_Cancelled(t *testing.T) {
	plan, out := testPlan(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDriver(nil).Run(ctx, plan)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "RUN001", core.MapError(err).Code)
	assert.NoFileExists(t, out)
}

func TestDriver_UsesRunIDFromContext(t *testing.T) {
	plan, _ := testPlan(t, nil)

	ctx := core.ContextWithRunID(context.Background(), "run-42")
	report, err := NewDriver(nil).Run(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, "run-42", report.RunID)
}

func TestDriver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	plan, _ := testPlan(t, nil)

	_, err := NewDriver(m).Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.files.WithLabelValues("succeeded")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.rowsRead))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rowsDropped.WithLabelValues("not_eligible")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rowsDropped.WithLabelValues("not_present")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.rowsKept))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.rowsWritten.WithLabelValues("csv")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.active))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runs))
}
