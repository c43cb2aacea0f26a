package scenario

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// Regenerate golden files with: go test ./pkg/scenario -update
func TestGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range []string{"double", "computed", "chain"} {
		t.Run(name, func(t *testing.T) {
			s, err := Load(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)

			res, err := Run(context.Background(), s)
			require.NoError(t, err)
			g.Assert(t, s.Name, res.Text())
		})
	}
}

func TestRun_StreamsTrace(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "double.yaml"))
	require.NoError(t, err)

	var buf bytes.Buffer
	res, err := Run(context.Background(), s, WithTraceWriter(&buf))
	require.NoError(t, err)

	assert.Equal(t, string(res.Text()), buf.String())
	assert.Equal(t, "double", res.Name)
	assert.Equal(t, map[string]int{"double": 2}, res.Runs)
}

func TestRun_IDsAreUnique(t *testing.T) {
	s, err := Parse([]byte("name: empty\nsteps: []\n"))
	require.NoError(t, err)

	a, err := Run(context.Background(), s)
	require.NoError(t, err)
	b, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 7, int(a.ID.Version()))
}

func TestRun_ExpectationFailure(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "failing.yaml"))
	require.NoError(t, err)

	res, err := Run(context.Background(), s)
	require.Error(t, err)

	var re *rerrors.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "E303", re.Code)
	assert.Contains(t, re.Detail, "Step 2 (expect)")
	assert.Contains(t, re.Detail, "effect watch ran 2 times, want 5")
	assert.Contains(t, re.Detail, "n = 2, want 3")

	// The run stops at the failing step.
	assert.Equal(t, []string{
		"run watch n=1",
		"set n = 2",
		"run watch n=2",
	}, res.Trace)
}

func TestRun_ReleasesState(t *testing.T) {
	before := reactive.Stats()

	s, err := Load(filepath.Join("testdata", "computed.yaml"))
	require.NoError(t, err)
	_, err = Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, before.Targets, reactive.Stats().Targets)
}

func TestRun_Canceled(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "double.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"run double count=1"}, res.Trace)
}

func TestRun_DoesNotMutateScenario(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "double.yaml"))
	require.NoError(t, err)

	_, err = Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, s.State["count"])

	// A second run sees the same starting state.
	res, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "run double count=1", res.Trace[0])
}

func TestRun_FlushSkipsStopped(t *testing.T) {
	s, err := Parse([]byte(`
name: stopped-before-flush
state: {v: 0}
effects:
  - name: lazy
    reads: [v]
    scheduler: manual
steps:
  - set: {key: v, value: 1}
  - set: {key: v, value: 2}
  - stop: lazy
  - flush: true
`))
	require.NoError(t, err)

	res, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"run lazy v=0",
		"set v = 1",
		"schedule lazy",
		"set v = 2",
		"schedule lazy",
		"stop lazy",
	}, res.Trace)
	assert.Equal(t, 1, res.Runs["lazy"])
}

func TestRun_FloatSum(t *testing.T) {
	s, err := Parse([]byte(`
name: floats
state: {a: 1, b: 0.5, label: x}
computed:
  - name: total
    sum: [a, b, label]
steps:
  - read: total
`))
	require.NoError(t, err)

	res, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"compute total = 1.5", "read total = 1.5"}, res.Trace)
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		yaml   string
		detail string
	}{
		{"syntax", "name: [", ""},
		{"unknown field", "name: x\nbogus: 1\n", ""},
		{"no name", "steps: []\n", "no name"},
		{"unknown read", "name: x\neffects:\n  - name: e\n    reads: [missing]\n", `reads "missing"`},
		{"forward computed", "name: x\nstate: {a: 1}\ncomputed:\n  - name: c1\n    sum: [c2]\n  - name: c2\n    sum: [a]\n", `sums "c2"`},
		{"duplicate effect", "name: x\neffects:\n  - name: e\n  - name: e\n", "declared twice"},
		{"bad scheduler", "name: x\neffects:\n  - name: e\n    scheduler: later\n", "unknown scheduler"},
		{"empty step", "name: x\nsteps:\n  - {}\n", "no action"},
		{"two actions", "name: x\nstate: {a: 1}\nsteps:\n  - {delete: a, read: a}\n", "several actions"},
		{"unknown effect", "name: x\nsteps:\n  - stop: ghost\n", `unknown effect "ghost"`},
		{"set computed", "name: x\nstate: {a: 1}\ncomputed:\n  - name: c\n    sum: [a]\nsteps:\n  - set: {key: c, value: 1}\n", "cannot set computed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)

			var re *rerrors.Error
			require.True(t, errors.As(err, &re))
			assert.Equal(t, "E301", re.Code)
			if tc.detail != "" {
				assert.Contains(t, re.Detail, tc.detail)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)

	var re *rerrors.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "E301", re.Code)
}

func TestLoad_SyntaxErrorHasLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\nsteps:\n  - set: [\n"), 0o644))

	_, err := Load(path)
	var re *rerrors.Error
	require.True(t, errors.As(err, &re))
	require.NotNil(t, re.Location)
	assert.Equal(t, path, re.Location.File)
}

func TestSum(t *testing.T) {
	assert.Equal(t, 3, sum([]any{1, 2, nil}))
	assert.Equal(t, 3.5, sum([]any{1, 2.5, "x"}))
	assert.Equal(t, 0, sum(nil))
}
