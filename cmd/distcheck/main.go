// Command distcheck builds an action distribution from model outputs
// given on the command line and prints its statistics.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samuelfneumann/actdist/distribution"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile string
	logLevel   string
	logger     = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "distcheck",
	Short: "Inspect action distributions built from model outputs",
	Long: `distcheck builds an action distribution from a batch of model
outputs over an action space and prints the required model output width,
entropies, samples with their log-probabilities, and KL divergences.

Spaces are written as discrete:3, multidiscrete:3,2 or box:-1:1,-inf:inf
and model outputs as rows separated by semicolons, e.g. "1,0,0;0,0,1".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %v", logLevel, err)
		}

		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().
			Timestamp().
			Str("run", uuid.New().String()).
			Logger()
		distribution.SetLogger(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Distribution config file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Uint64("seed", 0, "Seed for sampling and "+
		"Monte-Carlo estimates")

	mustBind(viper.GetViper(), "seed", rootCmd.PersistentFlags())
	viper.SetEnvPrefix("DISTCHECK")
	viper.AutomaticEnv()

	rootCmd.AddCommand(shapeCmd, evalCmd)
}

// mustBind binds the named flag to the viper key of the same name
func mustBind(v *viper.Viper, name string, flags *pflag.FlagSet) {
	flag := flags.Lookup(name)
	if flag == nil {
		panic(fmt.Sprintf("no flag %q to bind", name))
	}
	if err := v.BindPFlag(name, flag); err != nil {
		panic(err)
	}
}

// mustRequire marks the named flags of cmd as required
func mustRequire(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

// loadConfig reads the distribution config from the defaults, the
// config file, DISTCHECK_ environment variables and flags, in order of
// increasing precedence
func loadConfig(v *viper.Viper, file string) (distribution.Config, error) {
	def := distribution.DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("min_log_std", def.MinLogStd)
	v.SetDefault("max_log_std", def.MaxLogStd)
	v.SetDefault("monte_carlo_samples", def.MonteCarloSamples)
	v.SetDefault("seed", def.Seed)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return distribution.Config{}, fmt.Errorf("reading config "+
				"%s: %w", file, err)
		}
	}

	var cfg distribution.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return distribution.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return distribution.Config{}, err
	}
	return cfg, nil
}

func kindNames() string {
	kinds := distribution.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
