package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goravsingal/hubble/pkg/fdg"
	"github.com/goravsingal/hubble/pkg/fdg/modules"
	"github.com/goravsingal/hubble/pkg/fdg/returners"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "hubble",
		Short: "Hubble — declarative data gathering routines",
		Long: `Hubble runs flexible data gathering routines: YAML documents whose
named blocks each invoke one capability module and chain their results
into other blocks via pipe/xpipe keywords.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initLogger(logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(runCmd())
	root.AddCommand(topCmd())
	root.AddCommand(lintCmd())
	root.AddCommand(graphCmd())
	return root
}

// ─── run ──────────────────────────────────────────────────────────────────────

func runCmd() *cobra.Command {
	var (
		startingChained     string
		startingChainedJSON string
		maxDepth            int
		returnDir           string
	)

	cmd := &cobra.Command{
		Use:   "run <routine.fdg>",
		Short: "Execute a routine starting at its main block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			starting, err := parseStarting(startingChained, startingChainedJSON)
			if err != nil {
				return err
			}
			runner := buildRunner(maxDepth, returnDir)

			ctx := signalContext(cmd.Context())
			key, result, err := runner.RunFile(ctx, args[0], starting)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), map[string]any{
				"routine": key.Routine,
				"result":  result,
			})
		},
	}

	cmd.Flags().StringVar(&startingChained, "starting-chained", "", "seed the main block's chained value with a string")
	cmd.Flags().StringVar(&startingChainedJSON, "starting-chained-json", "", "seed the main block's chained value with a JSON value")
	cmd.Flags().IntVar(&maxDepth, "max-depth", fdg.DefaultMaxDepth, "maximum chaining depth before a run is aborted")
	cmd.Flags().StringVar(&returnDir, "return-dir", "", "directory for the file returner (optional)")
	return cmd
}

// ─── top ──────────────────────────────────────────────────────────────────────

func topCmd() *cobra.Command {
	var (
		target    string
		fdgDir    string
		maxDepth  int
		returnDir string
	)

	cmd := &cobra.Command{
		Use:   "top <topfile>",
		Short: "Run every routine a topfile assigns to this target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topfile := args[0]
			if target == "" {
				host, err := os.Hostname()
				if err != nil {
					return fmt.Errorf("resolve hostname: %w", err)
				}
				target = host
			}
			if fdgDir == "" {
				fdgDir = filepath.Dir(topfile)
			}

			dispatcher := &fdg.Dispatcher{
				Runner:  buildRunner(maxDepth, returnDir),
				BaseDir: fdgDir,
				Match:   fdg.MatchTarget(target),
			}

			ctx := signalContext(cmd.Context())
			results, err := dispatcher.Top(ctx, topfile)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), renderRunResults(results))
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "target id matched against topfile expressions (default: hostname)")
	cmd.Flags().StringVar(&fdgDir, "fdg-dir", "", "base directory for routine lookups (default: topfile directory)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", fdg.DefaultMaxDepth, "maximum chaining depth before a run is aborted")
	cmd.Flags().StringVar(&returnDir, "return-dir", "", "directory for the file returner (optional)")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <routine.fdg>",
		Short: "Statically check a routine without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := fdg.LoadFile(args[0])
			if err != nil {
				return err
			}
			findings := doc.Lint()
			for _, f := range findings {
				fmt.Fprintln(cmd.OutOrStdout(), f.Error())
			}
			if len(findings) > 0 {
				return fmt.Errorf("%d problem(s) found", len(findings))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: routine %q is valid (%d blocks)\n",
				args[0], len(doc.Blocks))
			return nil
		},
	}
	return cmd
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// buildRunner constructs a runner with all built-in modules and
// returners registered.
func buildRunner(maxDepth int, returnDir string) *fdg.Runner {
	rets := fdg.NewReturnerRegistry()
	rets.Register("stdout", returners.NewStdout(os.Stdout))
	if returnDir != "" {
		rets.Register("file", returners.NewFile(returnDir))
	}
	return &fdg.Runner{
		Modules:   modules.NewRegistry(),
		Returners: rets,
		MaxDepth:  maxDepth,
	}
}

// parseStarting turns the run flags into the starting chained value.
// The JSON form wins when both are given.
func parseStarting(plain, jsonValue string) (any, error) {
	if jsonValue != "" {
		var v any
		if err := json.Unmarshal([]byte(jsonValue), &v); err != nil {
			return nil, fmt.Errorf("invalid --starting-chained-json: %w", err)
		}
		return v, nil
	}
	if plain != "" {
		return plain, nil
	}
	return nil, nil
}

// renderRunResults flattens the keyed result map into a list sorted by
// routine path so the output is stable.
func renderRunResults(results map[fdg.RunKey]any) []map[string]any {
	keys := make([]fdg.RunKey, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Routine != keys[j].Routine {
			return keys[i].Routine < keys[j].Routine
		}
		if keys[i].StartingChained != keys[j].StartingChained {
			return keys[i].StartingChained < keys[j].StartingChained
		}
		return !keys[i].Seeded && keys[j].Seeded
	})

	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		entry := map[string]any{
			"routine": k.Routine,
			"result":  results[k],
		}
		if k.Seeded {
			entry["starting_chained"] = k.StartingChained
		}
		out = append(out, entry)
	}
	return out
}

// writeResult dumps v to w as a YAML document.
func writeResult(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// initLogger configures the process-wide slog default.
func initLogger(level, format string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q: use debug, info, warn or error", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q: use text or json", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			fmt.Fprintln(os.Stderr, "\n[hubble] interrupted, cancelling run")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
