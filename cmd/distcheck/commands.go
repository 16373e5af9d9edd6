package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist"
	"github.com/samuelfneumann/actdist/distribution"
	"github.com/samuelfneumann/actdist/space"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// errInvalidLogits is returned for malformed --logits and --other
// values
var errInvalidLogits = errors.New("invalid logits")

type options struct {
	kind    string
	space   string
	logits  string
	other   string
	samples int
}

var opts options

var shapeCmd = &cobra.Command{
	Use:   "shape",
	Short: "Print the model output width a distribution needs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper(), configFile)
		if err != nil {
			return err
		}
		return printShape(cmd.OutOrStdout(), opts, cfg)
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Print entropies, samples and KL divergences of a distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper(), configFile)
		if err != nil {
			return err
		}
		return evaluate(cmd.OutOrStdout(), opts, cfg)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{shapeCmd, evalCmd} {
		cmd.Flags().StringVar(&opts.kind, "kind", "", "Distribution kind ("+
			kindNames()+")")
		cmd.Flags().StringVar(&opts.space, "space", "", "Action space")
		mustRequire(cmd, "kind", "space")
	}

	evalCmd.Flags().StringVar(&opts.logits, "logits", "", "Model outputs, "+
		"one row per batch element")
	evalCmd.Flags().StringVar(&opts.other, "other", "", "Model outputs of "+
		"a second distribution to compute the KL divergence to")
	evalCmd.Flags().IntVar(&opts.samples, "samples", 1, "Number of samples "+
		"per batch element")
	mustRequire(evalCmd, "logits")
}

// parseLogits parses rows of comma-separated numbers separated by
// semicolons into a matrix
func parseLogits(text string) ([][]float64, error) {
	var rows [][]float64
	for _, r := range strings.Split(text, ";") {
		fields := strings.Split(r, ",")

		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, errors.Wrapf(errInvalidLogits, "row %d: %v",
					len(rows), err)
			}
			row[i] = v
		}

		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, errors.Wrapf(errInvalidLogits, "row %d has %d "+
				"columns but row 0 has %d", len(rows), len(row),
				len(rows[0]))
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func logitsNode(g *G.ExprGraph, name string, rows [][]float64) *G.Node {
	backing := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		backing = append(backing, r...)
	}

	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(len(rows), len(rows[0])),
		G.WithName(actdist.Unique(name)),
		G.WithValue(tensor.New(
			tensor.WithShape(len(rows), len(rows[0])),
			tensor.WithBacking(backing),
		)),
	)
}

func printShape(w io.Writer, o options, cfg distribution.Config) error {
	s, err := space.Parse(o.space)
	if err != nil {
		return err
	}

	layout, err := distribution.LayoutFor(distribution.Kind(o.kind), s, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%v over %v: width %d\n", o.kind, s, layout.Width())
	offset := 0
	for _, seg := range layout {
		fmt.Fprintf(w, "  %-10s [%d, %d)\n", seg.Name, offset,
			offset+seg.Width)
		offset += seg.Width
	}
	return nil
}

// evaluate builds the distribution described by o, runs its graph and
// prints per-row statistics
func evaluate(w io.Writer, o options, cfg distribution.Config) error {
	kind := distribution.Kind(o.kind)
	s, err := space.Parse(o.space)
	if err != nil {
		return err
	}
	rows, err := parseLogits(o.logits)
	if err != nil {
		return err
	}

	g := G.NewGraph()
	d, err := distribution.FromLogits(kind, logitsNode(g, "logits", rows),
		s, cfg)
	if err != nil {
		return err
	}

	entropy, err := d.Entropy()
	if err != nil {
		return err
	}
	value, logProb, err := d.Sample(distribution.SampleConfig{
		Shape:         []int{o.samples},
		ReturnLogProb: true,
		Source:        rand.NewSource(cfg.Seed),
	})
	if err != nil {
		return err
	}

	var kl *G.Node
	if o.other != "" {
		otherRows, err := parseLogits(o.other)
		if err != nil {
			return fmt.Errorf("other: %w", err)
		}
		other, err := distribution.FromLogits(kind, logitsNode(g, "other",
			otherRows), s, cfg)
		if err != nil {
			return fmt.Errorf("other: %w", err)
		}
		if kl, err = d.KL(other); err != nil {
			return err
		}
	}

	var entropyVal, valueVal, logProbVal, klVal G.Value
	G.Read(entropy, &entropyVal)
	G.Read(value, &valueVal)
	G.Read(logProb, &logProbVal)
	if kl != nil {
		G.Read(kl, &klVal)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return err
	}
	logger.Debug().Int("nodes", len(g.AllNodes())).Msg("graph run")

	h, err := actdist.Float64s(entropyVal)
	if err != nil {
		return err
	}
	values, err := actdist.Float64s(valueVal)
	if err != nil {
		return err
	}
	lp, err := actdist.Float64s(logProbVal)
	if err != nil {
		return err
	}
	var divergence []float64
	if kl != nil {
		if divergence, err = actdist.Float64s(klVal); err != nil {
			return err
		}
	}

	batch := d.BatchSize()
	event := len(values) / (o.samples * batch)
	for row := 0; row < batch; row++ {
		fmt.Fprintf(w, "row %d: entropy %.6f", row, h[row])
		if divergence != nil {
			fmt.Fprintf(w, " kl %.6f", divergence[row])
		}
		fmt.Fprintln(w)

		for i := 0; i < o.samples; i++ {
			j := i*batch + row
			fmt.Fprintf(w, "  sample %v logp %.6f\n",
				values[j*event:(j+1)*event], lp[j])
		}
	}

	return nil
}
