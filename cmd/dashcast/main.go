// Command dashcast serves the forecast, explore and stock dashboards and runs the same
// pipelines from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/dashcast/dashcast/internal/config"
	"github.com/dashcast/dashcast/internal/logger"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	profileMode string

	cfg *config.Config
	log zerolog.Logger

	stopProfile func()
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the command line and flushes any profile even when the command fails
func run(args []string) error {
	defer func() {
		if stopProfile != nil {
			stopProfile()
			stopProfile = nil
		}
	}()
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dashcast",
		Short:         "Forecast and data exploration dashboards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configFile); err != nil {
				return err
			}
			log = logger.New(cfg.Logger())
			return startProfile(profileMode)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "", "write a cpu or mem profile to the working directory")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(stocksCmd())
	rootCmd.AddCommand(simulateCmd())
	return rootCmd
}

func startProfile(mode string) error {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	default:
		return fmt.Errorf("unknown profile mode %q, expected cpu or mem", mode)
	}
	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	stopProfile = p.Stop
	return nil
}
