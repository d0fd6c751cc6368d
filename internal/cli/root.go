package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/lesys-monitor/lesys/internal/config"
)

// Global flags
var (
	cfgFile   string
	mockMode  bool
	noColor   bool
	useBits   bool
	themeFlag string
)

var rootCmd = &cobra.Command{
	Use:   "lesys",
	Short: "Live host resource monitor",
	Long: `lesys samples CPU, memory, GPU, network and disk activity once per second
and the process table every two seconds.

On a terminal it starts an interactive dashboard. When stdout is not a
terminal it writes one JSON system snapshot per line instead.

Examples:
  lesys
  lesys --mock --bits
  lesys | jq .cpu_percent`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./lesys.yaml or ~/.config/lesys/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "use simulated sensors and processes")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().BoolVar(&useBits, "bits", false, "show throughput in bits per second")
	rootCmd.Flags().StringVar(&themeFlag, "theme", "", "color theme (dark or light)")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config named by --config (or the default search
// path) and applies the command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("bits"); f != nil && f.Changed {
		cfg.UseBits = useBits
	}
	if f := cmd.Flags().Lookup("theme"); f != nil && f.Changed {
		cfg.Theme = themeFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
