package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"linverify/internal/search"
	"linverify/internal/verifier"
)

// errNotLinearizable makes the process exit with status 1 without printing
// an extra error line
var errNotLinearizable = errors.New("history is not linearizable")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errNotLinearizable) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verifier [flags] <history.json> [history2.json ...]",
		Short: "Check histories for linearizability",
		Long: "Check histories for linearizability.\n" +
			"Multiple timed history files will be automatically merged into one visualization.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	defaults := verifier.DefaultConfig()
	f := cmd.Flags()
	f.String("config", "", "YAML config file; flags override its values")
	f.String("tracker", defaults.Tracker, "Process tracker representation: map, memo or array")
	f.String("model", defaults.Model, "Model for events histories: register, cas-register or mutex")
	f.String("format", defaults.Format, "History format: timed or events")
	f.Duration("timeout", defaults.Timeout, "Give up after this long (0 for no limit)")
	f.Bool("cross-check", defaults.CrossCheck, "Also check timed histories with porcupine")
	f.Bool("visualize", defaults.Visualize, "Write a porcupine HTML visualization next to the history")
	f.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	f.Bool("serve", defaults.Serve, "Start a local web server to view the visualization")
	f.Int("port", defaults.Port, "Port for the web server")
	return cmd
}

// loadConfig reads --config if given, then applies every flag set on the
// command line
func loadConfig(cmd *cobra.Command) (verifier.Config, error) {
	cfg := verifier.DefaultConfig()
	f := cmd.Flags()

	if path, _ := f.GetString("config"); path != "" {
		loaded, err := verifier.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if f.Changed("tracker") {
		cfg.Tracker, _ = f.GetString("tracker")
	}
	if f.Changed("model") {
		cfg.Model, _ = f.GetString("model")
	}
	if f.Changed("format") {
		cfg.Format, _ = f.GetString("format")
	}
	if f.Changed("timeout") {
		cfg.Timeout, _ = f.GetDuration("timeout")
	}
	if f.Changed("cross-check") {
		cfg.CrossCheck, _ = f.GetBool("cross-check")
	}
	if f.Changed("visualize") {
		cfg.Visualize, _ = f.GetBool("visualize")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("serve") {
		cfg.Serve, _ = f.GetBool("serve")
	}
	if f.Changed("port") {
		cfg.Port, _ = f.GetInt("port")
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, historyPaths []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := verifier.NewLogger(cfg.LogLevel, os.Stderr)
	out := cmd.OutOrStdout()

	// If multiple files, merge them automatically
	var historyPath string
	if len(historyPaths) > 1 {
		if cfg.Format != verifier.FormatTimed {
			return fmt.Errorf("only %s histories can be merged", verifier.FormatTimed)
		}
		mergedPath, err := verifier.MergeHistories(historyPaths)
		if err != nil {
			return fmt.Errorf("error merging histories: %w", err)
		}
		fmt.Fprintf(out, "%s\n\n", verifier.Colorize(fmt.Sprintf("🧩 Merged %d histories into: %s", len(historyPaths), mergedPath), verifier.ColorGreen))
		historyPath = mergedPath
	} else {
		historyPath = historyPaths[0]
	}

	reg := prometheus.NewRegistry()
	checker := verifier.NewChecker(cfg, logger, search.NewMetrics(reg), out)

	// Process the (merged) history
	result := checker.ProcessHistory(context.Background(), historyPath)
	if result.Err != nil {
		return result.Err
	}

	// Print summary
	fmt.Fprintln(out, "\n"+verifier.Colorize("📊 Summary", verifier.ColorBold+verifier.ColorBlue))
	status := "✅"
	summaryColor := verifier.ColorGreen
	if !result.IsLinearizable {
		status = "🚫"
		summaryColor = verifier.ColorRed
	}
	summaryLine := fmt.Sprintf("%s %s: %d ops in %v", status, filepath.Base(result.Path), result.TotalOps, result.Elapsed)
	if !result.IsLinearizable && result.MaxPartialLen > 0 {
		summaryLine += fmt.Sprintf(" (max partial: %d)", result.MaxPartialLen)
	}
	fmt.Fprintln(out, verifier.Colorize(summaryLine, summaryColor))

	// Start server if requested
	if cfg.Serve {
		if err := verifier.StartSimpleServer(cfg.Port, result.HTMLPath, reg); err != nil {
			return err
		}
	} else if result.HTMLPath != "" {
		fmt.Fprintf(out, "\n%s\n", verifier.Colorize("🧭 Open "+result.HTMLPath+" in your browser to view the visualization", verifier.ColorBlue))
	}

	// Exit with error if history is not linearizable
	if !result.IsLinearizable {
		return errNotLinearizable
	}
	return nil
}
