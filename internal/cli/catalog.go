package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/joincode/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	File string
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and validate the token catalog",
		Long: `List the tokens that can appear in a join code.

Without --file the configured catalog (catalog.path) is used, falling back
to the built-in Minecraft Education icons. With --file the given .cue or
.yaml file is validated and listed instead; the exit code is 2 when it is
invalid.

Examples:
  joincode catalog
  joincode catalog --file ./icons.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "catalog file to validate instead of the configured one")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	path := opts.File
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return err
		}
		path = cfg.Catalog.Path
	}

	cat, err := loadCatalog(path)
	if err != nil {
		return out.fail(ExitCommandError, CodeInvalidInput, err.Error(), nil)
	}

	source := path
	if source == "" {
		source = "built-in"
	}
	out.VerboseLog("catalog %s: %d tokens", source, cat.Len())

	return out.Success(cat.Tokens(), formatCatalog(source, cat))
}

func formatCatalog(source string, cat *catalog.Catalog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Catalog (%s): %d tokens\n", source, cat.Len())
	for _, tok := range cat.Tokens() {
		fmt.Fprintf(&b, "  %-16s %s\n", tok.ID, tok.Glyph)
	}
	return b.String()
}
