// Command execution for CLI commands.
//
// Information Hiding:
// - Command dispatch logic hidden
// - Engine setup hidden behind Open
// - Output formatting hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/router"
	"github.com/richinex/dossier/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider   string
	ConfigPath string
	MaxIter    int
	Owner      string
	Bypass     bool
	Verbose    bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{Owner: defaultOwner()}
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// ErrRequestFailed is returned when a request produced error text.
var ErrRequestFailed = errors.New("request failed")

// ProfileInput is the person to research.
type ProfileInput struct {
	Name           string
	Company        string
	AdditionalInfo string
	Mode           string
}

// Profile researches a person and prints the profile.
func Profile(ctx context.Context, in ProfileInput, opts Options) error {
	return withApp(ctx, opts, func(app *App) router.Response {
		return app.Router.Profile(ctx, router.ProfileRequest{
			Name:           in.Name,
			Company:        in.Company,
			AdditionalInfo: in.AdditionalInfo,
			Mode:           in.Mode,
			Bypass:         opts.Bypass,
			Owner:          opts.Owner,
			Credentials:    app.Credentials(app.Settings.LLM.Backend()),
		})
	})
}

// DeepResearch researches a topic and prints the report.
func DeepResearch(ctx context.Context, topic, mode string, opts Options) error {
	return withApp(ctx, opts, func(app *App) router.Response {
		return app.Router.DeepResearch(ctx, router.DeepResearchRequest{
			Topic:       topic,
			Mode:        mode,
			Bypass:      opts.Bypass,
			Owner:       opts.Owner,
			Credentials: app.Credentials(app.Settings.LLM.Backend()),
		})
	})
}

// NoteInput describes the note to write.
type NoteInput struct {
	ProfileText string
	Length      int
	Tone        string
	Context     string
}

// Note writes a connection note for a profile and prints it.
func Note(ctx context.Context, in NoteInput, opts Options) error {
	return withApp(ctx, opts, func(app *App) router.Response {
		return app.Router.Note(ctx, router.NoteRequest{
			ProfileText: in.ProfileText,
			Length:      in.Length,
			Tone:        in.Tone,
			Context:     in.Context,
			Bypass:      opts.Bypass,
			Credentials: app.Credentials(app.Settings.LLM.Backend()),
		})
	})
}

// ClearCache removes every recorded interaction.
func ClearCache(ctx context.Context, opts Options) error {
	app, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Cache.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}

func withApp(ctx context.Context, opts Options, run func(*App) router.Response) error {
	app, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	resp := run(app)
	printResponse(os.Stdout, resp, opts.Verbose)
	if resp.Failed() {
		return ErrRequestFailed
	}
	return nil
}

func printResponse(w io.Writer, resp router.Response, verbose bool) {
	fmt.Fprintf(w, "%s\n", resp.Text)

	if resp.CachedNote != nil {
		fmt.Fprintf(w, "\n--- Cached note (%s, ~%d chars) ---\n%s\n", resp.CachedNote.Tone, resp.CachedNote.Length, resp.CachedNote.Note)
	}

	if verbose {
		source := "generated"
		if resp.FromCache {
			source = "from cache"
		}
		mode := resp.ModeUsed.String()
		if mode == "" {
			mode = "-"
		}
		fmt.Fprintf(w, "\n(request %s, mode %s, %s)\n", resp.RequestID, mode, source)
	}
}

// ListTools lists the tools offered to the backend in tools and hybrid modes.
func ListTools(verbose bool) {
	registry, err := tools.NewResearchRegistry(tools.ResearchConfig{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Println("Available tools:")
	fmt.Println()

	for _, meta := range registry.List() {
		fmt.Printf("  %s\n", meta.Name)
		fmt.Printf("    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Printf("      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Println()
	}
}

// ListProviders prints each backend with its key variable and default model.
func ListProviders() {
	fmt.Println("Available providers:")
	fmt.Println()
	for _, backend := range llm.ProviderTypes {
		fmt.Printf("  %-10s %-18s %s\n", backend, backend.EnvVar(), backend.DefaultModel())
	}
}
