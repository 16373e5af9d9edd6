package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist/distribution"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogits(t *testing.T) {
	rows, err := parseLogits("1, 0, 0;0,0,1")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0, 0}, {0, 0, 1}}, rows)

	rows, err = parseLogits("-inf,2.5")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	for _, bad := range []string{"", "1,2;3", "1,x", "1;;2"} {
		_, err := parseLogits(bad)
		assert.True(t, errors.Is(err, errInvalidLogits), "%q: %v", bad, err)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, distribution.DefaultConfig(), cfg)

	file := filepath.Join(t.TempDir(), "dist.yaml")
	require.NoError(t, os.WriteFile(file, []byte("version: 1\n"+
		"max_log_std: 1\nmonte_carlo_samples: 8\nseed: 3\n"), 0o600))

	cfg, err = loadConfig(viper.New(), file)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.MaxLogStd)
	assert.Equal(t, 8, cfg.MonteCarloSamples)
	assert.Equal(t, uint64(3), cfg.Seed)
	assert.Equal(t, -20.0, cfg.MinLogStd)

	require.NoError(t, os.WriteFile(file, []byte("version: 2\n"), 0o600))
	_, err = loadConfig(viper.New(), file)
	assert.True(t, errors.Is(err, distribution.ErrInvalidConfig))

	_, err = loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPrintShape(t *testing.T) {
	var buf bytes.Buffer
	err := printShape(&buf, options{
		kind:  string(distribution.KindDiagGaussian),
		space: "box:-1:1,-1:1",
	}, distribution.DefaultConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "width 4")
	assert.Contains(t, out, "mean")
	assert.Contains(t, out, "log_std")

	err = printShape(&buf, options{
		kind:  string(distribution.KindCategorical),
		space: "box:-1:1",
	}, distribution.DefaultConfig())
	assert.True(t, errors.Is(err, distribution.ErrUnsupportedSpace))
}

func TestEvaluate(t *testing.T) {
	var buf bytes.Buffer
	err := evaluate(&buf, options{
		kind:    string(distribution.KindCategorical),
		space:   "discrete:3",
		logits:  "1,0,0;0,0,1",
		other:   "1,0,0;0,0,1",
		samples: 3,
	}, distribution.DefaultConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "row 0: entropy")
	assert.Contains(t, out, "row 1: entropy")
	assert.Contains(t, out, "kl 0.000000")
	assert.Equal(t, 6, strings.Count(out, "sample"))

	buf.Reset()
	err = evaluate(&buf, options{
		kind:    string(distribution.KindSquashedGaussian),
		space:   "box:-1:1,0:2",
		logits:  "0,0,0,0",
		samples: 2,
	}, distribution.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(buf.String(), "sample"))
	assert.NotContains(t, buf.String(), "kl")

	err = evaluate(&buf, options{
		kind:    string(distribution.KindCategorical),
		space:   "discrete:3",
		logits:  "1,0",
		samples: 1,
	}, distribution.DefaultConfig())
	assert.True(t, errors.Is(err, distribution.ErrShapeMismatch))

	err = evaluate(&buf, options{
		kind:    "beta",
		space:   "discrete:3",
		logits:  "1,0,0",
		samples: 1,
	}, distribution.DefaultConfig())
	assert.True(t, errors.Is(err, distribution.ErrUnknownKind))
}

func TestFlagWiring(t *testing.T) {
	required := func(cmd *cobra.Command, name string) bool {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		_, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]
		return ok
	}

	for _, name := range []string{"kind", "space"} {
		assert.True(t, required(shapeCmd, name), name)
		assert.True(t, required(evalCmd, name), name)
	}
	assert.True(t, required(evalCmd, "logits"))
	assert.False(t, required(evalCmd, "samples"))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint64("seed", 0, "")
	require.NoError(t, flags.Parse([]string{"--seed", "5"}))

	v := viper.New()
	assert.NotPanics(t, func() { mustBind(v, "seed", flags) })
	assert.Equal(t, uint64(5), v.GetUint64("seed"))

	assert.Panics(t, func() { mustBind(v, "sede", flags) })
	assert.Panics(t, func() {
		mustRequire(&cobra.Command{Use: "empty"}, "kind")
	})
}
