package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/wikiref/internal/config"
	"github.com/roach88/wikiref/internal/identity"
	"github.com/roach88/wikiref/internal/refcache"
	"github.com/roach88/wikiref/internal/store"
)

// RootOptions holds global flags and the state every command shares.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigFile string

	// Loaded in PersistentPreRunE.
	Config *config.Config
	Logger *slog.Logger

	// Tokens generates job tokens; nil uses UUIDv7.
	Tokens identity.TokenGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the wikiref CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikiref",
		Short: "wikiref - Wikipedia article identity and reference cache",
		Long: `Resolve Wikimedia article URLs to stable revision ids, hash extracted
references, and look them up in the reference cache.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging on stderr)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")

	// Add subcommands
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))

	return cmd
}

// load reads configuration and builds the logger. Diagnostics go to stderr.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		f := o.formatter(cmd)
		return failWith(f, ErrCodeConfig, ExitCommandError, err)
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return failWith(o.formatter(cmd), ErrCodeConfig, ExitCommandError, err)
	}
	o.Config = cfg
	o.Logger = logger
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openCache opens and connects the configured store. The caller closes it.
func (o *RootOptions) openCache(ctx context.Context) (*refcache.Cache, error) {
	adapter, err := store.Open(o.Config.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", refcache.ErrCacheUnavailable, err)
	}
	cache := refcache.New(adapter, refcache.WithLogger(o.Logger))
	if err := cache.Connect(ctx); err != nil {
		return nil, err
	}
	return cache, nil
}

// newResolver builds a resolver from configuration.
func (o *RootOptions) newResolver() *identity.Resolver {
	opts := append(o.Config.ResolverOptions(), identity.WithLogger(o.Logger))
	return identity.NewResolver(opts...)
}
