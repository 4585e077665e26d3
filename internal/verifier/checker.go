package verifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anishathalye/porcupine"
	"github.com/google/uuid"

	"linverify/internal/history"
	"linverify/internal/model"
	"linverify/internal/processes"
	"linverify/internal/search"
)

// Checker checks history files and reports on out
type Checker struct {
	cfg     Config
	logger  *slog.Logger
	metrics *search.Metrics
	out     io.Writer
}

// NewChecker creates a Checker. metrics may be nil.
func NewChecker(cfg Config, logger *slog.Logger, metrics *search.Metrics, out io.Writer) *Checker {
	return &Checker{cfg: cfg, logger: logger, metrics: metrics, out: out}
}

// ProcessHistory processes a single history file and returns the result
func (c *Checker) ProcessHistory(ctx context.Context, historyPath string) HistoryResult {
	result := HistoryResult{
		RunID:   uuid.NewString(),
		Path:    historyPath,
		Tracker: c.cfg.Tracker,
	}
	logger := c.logger.With("run_id", result.RunID, "history", historyPath, "tracker", c.cfg.Tracker)
	fmt.Fprintf(c.out, "\n%s\n", Colorize("🧪 Processing "+filepath.Base(historyPath), ColorCyan))

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	switch c.cfg.Format {
	case FormatEvents:
		result = c.checkEvents(ctx, logger, result)
	default:
		result = c.checkTimed(ctx, logger, result)
	}
	result.Elapsed = time.Since(start)

	if result.Err != nil {
		logger.Error("check failed", "error", result.Err)
		fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  ❌ Error: %v", result.Err), ColorRed))
		return result
	}

	logger.Info("check finished",
		"linearizable", result.IsLinearizable,
		"ops", result.TotalOps,
		"visited", result.Visited,
		"max_frontier", result.MaxFrontier,
		"elapsed", result.Elapsed)
	c.printResults(result)
	return result
}

func (c *Checker) options(logger *slog.Logger) search.Options {
	return search.Options{
		Kind:    processes.Kind(c.cfg.Tracker),
		Logger:  logger,
		Metrics: c.metrics,
	}
}

// checkTimed checks a key-value history key by key, then cross-checks the
// whole history with porcupine
func (c *Checker) checkTimed(ctx context.Context, logger *slog.Logger, result HistoryResult) HistoryResult {
	ops, err := loadHistory(result.Path)
	if err != nil {
		result.Err = err
		return result
	}
	result.TotalOps = len(ops)
	result.IsLinearizable = true

	if len(ops) == 0 {
		fmt.Fprintln(c.out, Colorize("  ⚪️ No operations found in history", ColorYellow))
		return result
	}

	kv := createKVModel()
	keys, partitions := partitionOperations(ops)
	for i, part := range partitions {
		h, err := history.Prepare(convertToEvents(part))
		if err != nil {
			result.Err = fmt.Errorf("key %q: %w", keys[i], err)
			return result
		}
		res, err := search.Check(ctx, model.FromPorcupine(kv), h, c.options(logger.With("key", keys[i])))
		if err != nil {
			result.Err = fmt.Errorf("key %q: %w", keys[i], err)
			return result
		}
		result.Visited += res.Visited
		result.MaxFrontier = max(result.MaxFrontier, res.MaxFrontier)
		if !res.Valid {
			result.IsLinearizable = false
			result.FailedAt = fmt.Sprintf("key %q: %s", keys[i], describeEvent(kv, *res.FailedAt))
			break
		}
	}

	if c.cfg.CrossCheck {
		result = c.crossCheck(kv, ops, logger, result)
	}
	return result
}

func (c *Checker) crossCheck(kv porcupine.Model, ops []Operation, logger *slog.Logger, result HistoryResult) HistoryResult {
	for _, op := range ops {
		if op.Pending() {
			logger.Warn("skipping porcupine cross-check: history has pending operations")
			return result
		}
	}

	// Convert to Porcupine format
	porcupineHistory := convertToPorcupineOperations(ops)
	check, info := porcupine.CheckOperationsVerbose(kv, porcupineHistory, c.cfg.Timeout)
	result.CrossChecked = true
	result.Result = check
	result.MaxPartialLen = calculateMaxPartialLength(info)

	if !result.Agrees() {
		logger.Error("porcupine disagrees", "porcupine", check, "linearizable", result.IsLinearizable)
	}

	if c.cfg.Visualize {
		result.HTMLPath = c.generateVisualization(result.Path, kv, info)
	}
	return result
}

func (c *Checker) checkEvents(ctx context.Context, logger *slog.Logger, result HistoryResult) HistoryResult {
	raw, err := loadEvents(result.Path)
	if err != nil {
		result.Err = err
		return result
	}
	m, err := model.Named(c.cfg.Model)
	if err != nil {
		result.Err = err
		return result
	}
	h, err := history.Prepare(raw)
	if err != nil {
		result.Err = err
		return result
	}
	result.TotalOps = len(raw)

	res, err := search.Check(ctx, m, h, c.options(logger))
	if err != nil {
		result.Err = err
		return result
	}
	result.IsLinearizable = res.Valid
	result.Visited = res.Visited
	result.MaxFrontier = res.MaxFrontier
	if !res.Valid {
		result.FailedAt = res.FailedAt.String()
	}
	return result
}

func describeEvent(kv porcupine.Model, op history.Operation) string {
	if call, ok := op.Value.(model.PorcupineCall); ok {
		return kv.DescribeOperation(call.Input, call.Output)
	}
	return op.String()
}

// calculateMaxPartialLength finds the maximum partial linearization length
func calculateMaxPartialLength(info porcupine.LinearizationInfo) int {
	partialLinearizations := info.PartialLinearizations()
	maxPartialLength := 0
	for _, partition := range partialLinearizations {
		for _, linearization := range partition {
			if len(linearization) > maxPartialLength {
				maxPartialLength = len(linearization)
			}
		}
	}
	return maxPartialLength
}

// generateVisualization creates an HTML visualization file
func (c *Checker) generateVisualization(historyPath string, kv porcupine.Model, info porcupine.LinearizationInfo) string {
	baseName := strings.TrimSuffix(filepath.Base(historyPath), filepath.Ext(historyPath))
	htmlPath := filepath.Join(filepath.Dir(historyPath), baseName+".html")

	htmlFile, err := os.Create(htmlPath)
	if err != nil {
		fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  ⚠️ Warning: Failed to create visualization file: %v", err), ColorYellow))
		return ""
	}
	defer htmlFile.Close()

	if err := porcupine.Visualize(kv, info, htmlFile); err != nil {
		fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  ⚠️ Warning: Failed to generate visualization: %v", err), ColorYellow))
	} else {
		fmt.Fprintf(c.out, "%s\n", Colorize("  🖼️  Generated visualization: "+htmlPath, ColorGreen))
	}

	return htmlPath
}

// printResults prints the linearizability check results
func (c *Checker) printResults(r HistoryResult) {
	color := ColorGreen
	if r.IsLinearizable {
		fmt.Fprintln(c.out, Colorize("  ✅ History is linearizable", color))
	} else {
		color = ColorRed
		fmt.Fprintln(c.out, Colorize("  🚫 History is NOT linearizable", color))
	}
	fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  🧮 Total operations: %d", r.TotalOps), color))
	fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  🔎 Configurations visited: %d (max frontier %d, %s tracker)",
		r.Visited, r.MaxFrontier, r.Tracker), color))
	if r.FailedAt != "" {
		fmt.Fprintf(c.out, "%s\n", Colorize("  📌 No linearization explains: "+r.FailedAt, color))
	}

	if !r.CrossChecked {
		return
	}
	if r.MaxPartialLen > 0 && !r.IsLinearizable {
		fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  📌 Max partial linearization length: %d (out of %d)",
			r.MaxPartialLen, r.TotalOps), color))
	}
	if r.Agrees() {
		fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  🤝 Porcupine check result: %v", r.Result), color))
	} else {
		fmt.Fprintf(c.out, "%s\n", Colorize(fmt.Sprintf("  ⚠️ Porcupine disagrees: %v", r.Result), ColorYellow))
	}
}
