package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wikiref/internal/identity"
)

// ResolveResult is the output of the resolve command.
type ResolveResult struct {
	Identity    identity.JobIdentity `json:"identity" yaml:"identity"`
	CanonicalID string               `json:"canonical_id,omitempty" yaml:"canonical_id,omitempty"`
	URL         string               `json:"url,omitempty" yaml:"url,omitempty"`
	Sections    string               `json:"sections,omitempty" yaml:"sections,omitempty"`
	Refresh     bool                 `json:"refresh" yaml:"refresh"`
	Dehydrate   bool                 `json:"dehydrate" yaml:"dehydrate"`
	Token       string               `json:"token" yaml:"token"`
}

func (r ResolveResult) String() string {
	var b strings.Builder
	row := func(k string, v any) { fmt.Fprintf(&b, "%-13s %v\n", k+":", v) }

	if r.Identity.Title != "" {
		row("title", r.Identity.Title)
	}
	row("language", r.Identity.Language)
	row("domain", r.Identity.Domain)
	if r.Identity.PageID != 0 {
		row("page_id", r.Identity.PageID)
	}
	if r.Identity.Revision != 0 {
		row("revision", r.Identity.Revision)
	}
	if r.CanonicalID != "" {
		row("canonical_id", r.CanonicalID)
	} else {
		row("canonical_id", "(unresolved)")
	}
	if r.Sections != "" {
		row("sections", r.Sections)
	}
	row("job", r.Token)
	return strings.TrimSuffix(b.String(), "\n")
}

type resolveFlags struct {
	req     identity.JobRequest
	offline bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &resolveFlags{}

	cmd := &cobra.Command{
		Use:   "resolve [article-url]",
		Short: "Resolve an article to its canonical revision id",
		Long: `Normalize an article request and ask the wiki for its page id and
latest revision.

The article is named by URL, or by --title with optional --lang and
--domain. If the URL cannot be used and --title is given, the explicit
fields are used instead. --revision pins a revision; otherwise the latest
one is taken. --offline skips the lookup.`,
		Example: `  wikiref resolve https://en.wikipedia.org/wiki/Easter_Island
  wikiref resolve --lang de --domain wiktionary --title Haus --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.req.URL = args[0]
			}
			return runResolve(rootOpts, flags, cmd)
		},
	}

	cmd.Flags().StringVar(&flags.req.Language, "lang", "", "language code (default \"en\" when no URL is given)")
	cmd.Flags().StringVar(&flags.req.Domain, "domain", "", "Wikimedia site, e.g. wikipedia or wiktionary.org")
	cmd.Flags().StringVar(&flags.req.Title, "title", "", "article title")
	cmd.Flags().Int64Var(&flags.req.PageID, "page-id", 0, "known page id (skips the lookup)")
	cmd.Flags().Int64Var(&flags.req.Revision, "revision", 0, "pin this revision instead of the latest")
	cmd.Flags().StringVar(&flags.req.Sections, "sections", "", "pipe-delimited section names, e.g. \"bibliography|further reading\"")
	cmd.Flags().BoolVar(&flags.req.Refresh, "refresh", false, "ignore cached results downstream")
	cmd.Flags().BoolVar(&flags.req.Dehydrate, "dehydrate", false, "request references without full payloads downstream")
	cmd.Flags().BoolVar(&flags.offline, "offline", false, "normalize only, do not contact the wiki")

	return cmd
}

func runResolve(opts *RootOptions, flags *resolveFlags, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	job, err := identity.NewArticleJob(flags.req, opts.Tokens, opts.Logger)
	if err != nil {
		return fail(formatter, err)
	}
	logger := opts.Logger.With("job", job.Token)

	if !flags.offline {
		formatter.VerboseLog("Resolving %s.%s %q", job.Identity.Language, job.Identity.Domain, job.Identity.Title)
		if err := opts.newResolver().ResolveIDs(cmd.Context(), &job.Identity); err != nil {
			return fail(formatter, err)
		}
		if job.Identity.PageID == 0 {
			return failWith(formatter, ErrCodePageNotFound, ExitFailure,
				fmt.Errorf("page %q not found on %s.%s", job.Identity.Title, job.Identity.Language, job.Identity.Domain))
		}
	}

	result := ResolveResult{
		Identity:  job.Identity,
		URL:       job.URL,
		Sections:  job.Sections,
		Refresh:   job.Refresh,
		Dehydrate: job.Dehydrate,
		Token:     job.Token,
	}
	if job.Identity.Resolved() {
		result.CanonicalID, _ = job.Identity.CanonicalID()
	}
	logger.Debug("resolve finished", "canonical_id", result.CanonicalID)

	return formatter.Success(result)
}
