package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tagkb/internal/config"
	"tagkb/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	aliasPath  string
	minJoint   int
	minRatio   float64
	taxPath    string
	tagPath    string
	expPath    string

	// Logger
	logger = zap.NewNop()
)

// errMissingAlias is returned when the mandatory relation file is absent.
var errMissingAlias = errors.New("please provide an alias file with --alias")

// rootCmd updates the knowledge base from a relation file
var rootCmd = &cobra.Command{
	Use:   "tagkb",
	Short: "Update the AV tag taxonomy, tagging and expansion rules",
	Long: `tagkb reads the tag relations found by the labeler (a .alias file) and
updates the taxonomy, tagging and expansion files accordingly.

Each relation is classified against the current knowledge base: known
relations are skipped, equivalent tags become aliases, unknown tags get a
category, and generalizations become expansion rules. Relations nothing can
be decided for are written to <prefix>.final.rules for manual review.

Example:
  tagkb --alias sample.alias -o out/sample
  tagkb --alias sample.alias --update`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Categories: cfg.Logging.Categories,
		}
		if verbose {
			opts.Level = "debug"
		}
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Root()
		activeConfig = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runUpdate,
}

// activeConfig is the merged configuration of the current invocation.
var activeConfig = config.DefaultConfig()

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose, print debugging statements")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "tagkb.yaml", "Config file (ignored if missing)")
	rootCmd.PersistentFlags().StringVar(&aliasPath, "alias", "", "Input file with relations from the labeler (mandatory)")
	rootCmd.PersistentFlags().IntVarP(&minJoint, "min-joint", "n", 20, "Minimum number of times a pair of tokens has been seen")
	rootCmd.PersistentFlags().Float64VarP(&minRatio, "min-ratio", "t", 0.94, "Minimum ratio of times two tokens appear together")
	rootCmd.PersistentFlags().StringVar(&taxPath, "tax", config.DefaultTaxonomyPath, "File with the taxonomy")
	rootCmd.PersistentFlags().StringVar(&tagPath, "tag", config.DefaultTaggingPath, "File with tagging rules")
	rootCmd.PersistentFlags().StringVar(&expPath, "exp", config.DefaultExpansionPath, "File with expansion rules")

	// Update flags
	rootCmd.Flags().StringVarP(&outPrefix, "out", "o", "", "Output prefix for files (default: alias path without extension)")
	rootCmd.Flags().BoolVar(&inPlace, "update", false, "Update the taxonomy, tagging and expansion files in place")

	// Stats flags
	statsCmd.Flags().IntVar(&statsLimit, "limit", 20, "Maximum destinations to show (0 = all)")
	statsCmd.Flags().BoolVar(&statsTSV, "tsv", false, "Print plain tab-separated statistics")

	// History flags
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum runs to show (0 = all)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, the environment and the flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("min-joint") {
		cfg.Thresholds.MinJointCount = minJoint
	}
	if flags.Changed("min-ratio") {
		cfg.Thresholds.MinRatio = minRatio
	}
	if flags.Changed("tax") {
		cfg.Paths.Taxonomy = taxPath
	}
	if flags.Changed("tag") {
		cfg.Paths.Tagging = tagPath
	}
	if flags.Changed("exp") {
		cfg.Paths.Expansion = expPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
