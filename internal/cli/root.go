// Package cli wires the checker's invocation surface: one command that
// builds judgment cases from a file plus optional setting overrides and
// exits 0 only when every case is interesting.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shao-hua-li/diopter/internal/config"
	"github.com/shao-hua-li/diopter/internal/logging"
	"github.com/shao-hua-li/diopter/pkg/check"
)

const (
	appName    = "checker"
	appVersion = "0.1.0"
)

// errNotInteresting maps a rejected candidate onto exit code 1 without
// dressing it up as a fault.
var errNotInteresting = errors.New("not interesting")

type rootOptions struct {
	configPath    string
	file          string
	marker        string
	badSettings   []string
	badOptLevels  []string
	goodSettings  []string
	goodOptLevels []string
	logLevel      string
	logFormat     string
}

// NewRootCmd builds the checker command.
func NewRootCmd() *cobra.Command {
	opts := rootOptions{
		logLevel:  "info",
		logFormat: "text",
	}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Interestingness oracle for divergent dead-code elimination",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			logging.Init(logging.ParseLevel(opts.logLevel), opts.logFormat)
			return run(opts)
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to the tool configuration file")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "case file or source file to judge")
	cmd.Flags().StringVarP(&opts.marker, "marker", "m", "", "marker identifier under investigation")
	cmd.Flags().StringSliceVar(&opts.badSettings, "bad-settings", nil, "bad compiler overrides (name or name:Ox)")
	cmd.Flags().StringSliceVar(&opts.badOptLevels, "bad-opt-levels", nil, "opt levels for bad overrides without one")
	cmd.Flags().StringSliceVar(&opts.goodSettings, "good-settings", nil, "good compiler overrides (name or name:Ox)")
	cmd.Flags().StringSliceVar(&opts.goodOptLevels, "good-opt-levels", nil, "opt levels for good overrides without one")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "debug, info, warn or error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", opts.logFormat, "text or json")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagFilename("file", "c", "yaml")
	_ = cmd.MarkFlagFilename("config", "yaml")

	return cmd
}

func run(opts rootOptions) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	cases, err := buildCases(opts, cfg)
	if err != nil {
		return err
	}

	timeouts := cfg.CheckTimeouts()
	builder := check.NewCompileBuilder(check.ExecRunner{}, timeouts.Compile)
	chkr := check.NewChecker(cfg.Tools(), builder, timeouts)

	for _, c := range cases {
		interesting, err := chkr.IsInteresting(c)
		if err != nil {
			return err
		}
		if !interesting {
			return errNotInteresting
		}
	}
	return nil
}

// buildCases constructs the cases to judge according to which override
// sets were supplied, mirroring the four documented invocation modes.
func buildCases(opts rootOptions, cfg *config.Config) ([]check.ReduceCase, error) {
	badLevels := opts.badOptLevels
	if len(badLevels) == 0 {
		badLevels = cfg.DefaultOptLevels
	}
	goodLevels := opts.goodOptLevels
	if len(goodLevels) == 0 {
		goodLevels = cfg.DefaultOptLevels
	}
	badOverrides := check.ExpandSettings(opts.badSettings, badLevels)
	goodOverrides := check.ExpandSettings(opts.goodSettings, goodLevels)

	var cases []check.ReduceCase
	markerRequired := false
	switch {
	case len(badOverrides) > 0 && len(goodOverrides) > 0:
		// Everything overridden: the file is read verbatim as source and
		// every supplied bad setting gets its own case.
		raw, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, fmt.Errorf("read source %s: %w", opts.file, err)
		}
		for _, bs := range badOverrides {
			bad := bs.WithFlags(cfg.DefaultFlags)
			cases = append(cases, check.ReduceCase{
				Code:         string(raw),
				BadSetting:   bad,
				GoodSettings: check.CopyFlags(bad, goodOverrides),
			})
		}
		markerRequired = true

	case len(badOverrides) > 0:
		base, err := check.LoadCase(opts.file)
		if err != nil {
			return nil, err
		}
		cases = check.OverrideBad(base, badOverrides)

	case len(goodOverrides) > 0:
		base, err := check.LoadCase(opts.file)
		if err != nil {
			return nil, err
		}
		derived, err := check.OverrideGood(base, goodOverrides)
		if err != nil {
			return nil, err
		}
		cases = []check.ReduceCase{derived}

	default:
		base, err := check.LoadCase(opts.file)
		if err != nil {
			return nil, err
		}
		cases = []check.ReduceCase{base}
	}

	if opts.marker != "" {
		for i := range cases {
			cases[i].Marker = opts.marker
		}
	} else if markerRequired {
		return nil, fmt.Errorf("overriding both bad and good settings requires --marker")
	}
	return cases, nil
}
