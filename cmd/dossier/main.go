// Package main provides the dossier CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/dossier/cli"
)

var (
	// Global flags
	provider   string
	configPath string
	maxIter    int
	owner      string
	bypass     bool
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "dossier",
		Short: "Research people and topics with cached web search and LLMs",
		Long: `A CLI for researching people and topics by combining web search, page scraping
and LLM generation, with every interaction cached for reuse.

Three modes are available for profile and research commands:
- rag: search and scrape first, then generate from the gathered context
- tools: the model drives search, scraping and history lookups itself
- hybrid: run rag first, then a tools pass seeded with its output`,
		SilenceUsage: true,
	}

	defaults := cli.DefaultOptions()

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, gemini, grok); defaults to LLM_PROVIDER")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML settings file")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum tool iterations in tools and hybrid modes (0 uses AGENT_MAX_ITERATIONS)")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", defaults.Owner, "Owner whose research history is saved and searched")
	rootCmd.PersistentFlags().BoolVar(&bypass, "no-cache", false, "Skip cache lookups (results are still recorded where applicable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging and response details")

	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(researchCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(providersCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrRequestFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:   provider,
		ConfigPath: configPath,
		MaxIter:    maxIter,
		Owner:      owner,
		Bypass:     bypass,
		Verbose:    verbose,
	}
}

func profileCmd() *cobra.Command {
	var in cli.ProfileInput

	cmd := &cobra.Command{
		Use:   "profile [name]",
		Short: "Research a person and write a professional profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")
			return cli.Profile(cmd.Context(), in, options())
		},
	}

	cmd.Flags().StringVar(&in.Company, "company", "", "Current company")
	cmd.Flags().StringVar(&in.AdditionalInfo, "info", "", "Additional identifying information")
	cmd.Flags().StringVar(&in.Mode, "mode", "rag", "Research mode: rag, tools, or hybrid")

	return cmd
}

func researchCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "research [topic]",
		Short: "Run deep research on a topic and write a report",
		Long: `Run deep research on a topic.

In rag mode the topic is planned into search queries, each query is searched
(cached per query), results are merged by URL and scraped, and a report is
synthesized. A similar earlier topic is served from cache.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.DeepResearch(cmd.Context(), strings.Join(args, " "), mode, options())
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "rag", "Research mode: rag, tools, or hybrid")

	return cmd
}

func noteCmd() *cobra.Command {
	var in cli.NoteInput
	var profileFile string

	cmd := &cobra.Command{
		Use:   "note",
		Short: "Write a connection note from a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if profileFile == "" {
				return errors.New("--profile-file is required")
			}
			data, err := readInput(profileFile)
			if err != nil {
				return err
			}
			in.ProfileText = string(data)
			return cli.Note(cmd.Context(), in, options())
		},
	}

	cmd.Flags().StringVarP(&profileFile, "profile-file", "f", "", "File holding the profile text (- for stdin)")
	cmd.Flags().IntVar(&in.Length, "length", 300, "Approximate note length in characters")
	cmd.Flags().StringVar(&in.Tone, "tone", "professional", "Tone of the note")
	cmd.Flags().StringVar(&in.Context, "context", "", "Reason for connecting")

	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the interaction cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached interaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ClearCache(cmd.Context(), options())
		},
	})

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools available in tools and hybrid modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListTools(verboseTools)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListProviders()
			return nil
		},
	}
}
