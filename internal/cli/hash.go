package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wikiref/internal/ir"
)

// HashResult is the output of the hash command.
type HashResult struct {
	Source string   `json:"source" yaml:"source"`
	Hashes []string `json:"hashes" yaml:"hashes"`
}

func (r HashResult) String() string {
	return strings.Join(r.Hashes, "\n")
}

// DOIResult is the output of hash --doi.
type DOIResult struct {
	DOI     string `json:"doi" yaml:"doi"`
	ShortID string `json:"short_id" yaml:"short_id"`
}

func (r DOIResult) String() string {
	return r.ShortID
}

type hashFlags struct {
	doi  string
	text string
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &hashFlags{}

	cmd := &cobra.Command{
		Use:   "hash [file|-]",
		Short: "Compute reference content hashes",
		Long: `Compute the content hash of reference payloads.

Input is a JSON object (one reference) or a JSON array of objects, read
from the file argument or from stdin when the argument is "-" or absent.
Null members are ignored and numbers must be integers. One hash is printed
per reference, in input order.

--text hashes a reference known only by its wikitext. --doi prints the
8-character short id of a DOI instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, flags, args, cmd)
		},
	}

	cmd.Flags().StringVar(&flags.doi, "doi", "", "print the short id of this DOI")
	cmd.Flags().StringVar(&flags.text, "text", "", "hash this reference wikitext")

	return cmd
}

func runHash(opts *RootOptions, flags *hashFlags, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if flags.doi != "" && flags.text != "" {
		return failWith(formatter, ErrCodeUsage, ExitCommandError, errors.New("--doi and --text are mutually exclusive"))
	}
	if (flags.doi != "" || flags.text != "") && len(args) > 0 {
		return failWith(formatter, ErrCodeUsage, ExitCommandError, errors.New("an input file cannot be combined with --doi or --text"))
	}

	switch {
	case flags.doi != "":
		id, err := ir.DOIShortID(flags.doi)
		if err != nil {
			return failWith(formatter, ErrCodeUsage, ExitCommandError, err)
		}
		return formatter.Success(DOIResult{DOI: strings.TrimSpace(flags.doi), ShortID: id})

	case flags.text != "":
		h, err := ir.TextHash(flags.text)
		if err != nil {
			return failWith(formatter, ErrCodeUsage, ExitCommandError, err)
		}
		return formatter.Success(HashResult{Source: "text", Hashes: []string{h}})
	}

	source := "-"
	if len(args) == 1 {
		source = args[0]
	}
	payloads, err := readReferences(cmd, source)
	if err != nil {
		return failInput(formatter, err)
	}

	result := HashResult{Source: source, Hashes: make([]string, 0, len(payloads))}
	for i, p := range payloads {
		h, err := ir.ReferenceHash(p)
		if err != nil {
			return failWith(formatter, ErrCodeInvalidJSON, ExitCommandError, fmt.Errorf("reference %d: %w", i, err))
		}
		result.Hashes = append(result.Hashes, h)
	}
	formatter.VerboseLog("Hashed %d reference(s) from %s", len(result.Hashes), source)
	return formatter.Success(result)
}

// errInvalidReferences marks input that is readable but not references.
var errInvalidReferences = errors.New("input is not a reference object or an array of reference objects")

// readReferences reads one JSON object or an array of them from a file or,
// for "-", from stdin.
func readReferences(cmd *cobra.Command, source string) ([]ir.Object, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, err
	}

	v, err := ir.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidReferences, err)
	}
	switch v := v.(type) {
	case ir.Object:
		return []ir.Object{v}, nil
	case ir.Array:
		out := make([]ir.Object, 0, len(v))
		for i, item := range v {
			obj, ok := item.(ir.Object)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is not an object", errInvalidReferences, i)
			}
			out = append(out, obj)
		}
		return out, nil
	}
	return nil, errInvalidReferences
}

func failInput(f *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failWith(f, ErrCodeNotFound, ExitCommandError, err)
	case errors.Is(err, errInvalidReferences):
		return failWith(f, ErrCodeInvalidJSON, ExitCommandError, err)
	}
	return failWith(f, ErrCodeReadFailed, ExitCommandError, err)
}
