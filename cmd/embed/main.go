// Package main provides the embed command line tool for inspecting provider
// patterns and resolving pasted URLs outside an editor host.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	embed "github.com/goliatone/go-embed"
	"github.com/goliatone/go-embed/internal/logging/console"
)

const appName = "embed"

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Inspect and resolve editor embed URLs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs to stderr")

	load := func() (*embed.Module, error) {
		cfg := embed.DefaultConfig()
		if configPath != "" {
			loaded, err := embed.LoadConfig(configPath)
			if err != nil {
				return nil, fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
		}
		opts := []embed.Option{}
		if verbose {
			level := console.LevelDebug
			cfg.Features.Logger = true
			opts = append(opts, embed.WithLoggerProvider(console.NewProvider(console.Options{
				Writer:   os.Stderr,
				MinLevel: &level,
			})))
		}
		return embed.New(cfg, opts...)
	}

	cmd.AddCommand(patternsCmd(out, load))
	cmd.AddCommand(matchCmd(out, load))
	cmd.AddCommand(resolveCmd(out, load))
	cmd.AddCommand(validateCmd(out, load))
	return cmd
}

type moduleLoader func() (*embed.Module, error)

func patternsCmd(out io.Writer, load moduleLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print the paste patterns of every active provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := load()
			if err != nil {
				return err
			}
			return writeJSON(out, module.PasteConfig().Patterns)
		},
	}
}

func matchCmd(out io.Writer, load moduleLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "match <url>",
		Short: "Report which provider claims a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := load()
			if err != nil {
				return err
			}
			result, ok := module.Match(args[0])
			if !ok {
				return fmt.Errorf("no provider matches %q", args[0])
			}
			return writeJSON(out, map[string]any{
				"service":  result.ProviderKey,
				"captures": result.Captures,
			})
		},
	}
}

func resolveCmd(out io.Writer, load moduleLoader) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve a URL into the block data the editor would save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := load()
			if err != nil {
				return err
			}
			match, ok := module.Match(args[0])
			if !ok {
				return fmt.Errorf("no provider matches %q", args[0])
			}

			block, err := module.NewBlock(embed.BlockParams{})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := block.OnPaste(ctx, embed.PasteEvent{ProviderKey: match.ProviderKey, URL: args[0]}); err != nil {
				return err
			}
			block.Wait()
			if block.State() == embed.StateError {
				return fmt.Errorf("embed for %q could not be loaded", args[0])
			}
			return writeJSON(out, block.Save())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Upper bound for remote fetches")
	return cmd
}

func validateCmd(out io.Writer, load moduleLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a saved block payload (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := load()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if !module.ValidateJSON(raw) {
				return fmt.Errorf("%s: invalid embed block data", args[0])
			}
			_, err = fmt.Fprintln(out, "ok")
			return err
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
