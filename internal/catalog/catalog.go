// Package catalog loads the ordered list of selectable tokens.
//
// Catalogs are declared in CUE (or YAML, converted to CUE) and validated
// against the #Catalog schema in schema.cue. The default catalog is embedded
// in the binary. A catalog is read-only once loaded.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE string

var (
	// ErrEmptyCatalog indicates a catalog without tokens.
	ErrEmptyCatalog = errors.New("catalog has no tokens")

	// ErrDuplicateToken indicates two tokens sharing an id.
	ErrDuplicateToken = errors.New("duplicate token id")

	// ErrInvalidToken indicates a token with a malformed id or empty glyph.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnsupportedFormat indicates a catalog file that is neither CUE nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

var validID = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Token is one selectable pictorial identifier.
type Token struct {
	ID    string `json:"id" yaml:"id"`
	Glyph string `json:"glyph" yaml:"glyph"`
}

// Catalog is an ordered, immutable token list.
type Catalog struct {
	tokens  []Token
	byID    map[string]int
	byGlyph map[string]int
}

// New validates tokens and builds a Catalog preserving their order.
func New(tokens []Token) (*Catalog, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		tokens:  make([]Token, 0, len(tokens)),
		byID:    make(map[string]int, len(tokens)),
		byGlyph: make(map[string]int, len(tokens)),
	}
	for i, t := range tokens {
		t.ID = norm.NFC.String(strings.TrimSpace(t.ID))
		t.Glyph = norm.NFC.String(strings.TrimSpace(t.Glyph))
		if !validID.MatchString(t.ID) {
			return nil, fmt.Errorf("%w: token %d has id %q", ErrInvalidToken, i, t.ID)
		}
		if t.Glyph == "" {
			return nil, fmt.Errorf("%w: token %q has no glyph", ErrInvalidToken, t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateToken, t.ID)
		}
		c.byID[t.ID] = len(c.tokens)
		if _, taken := c.byGlyph[t.Glyph]; !taken {
			c.byGlyph[t.Glyph] = len(c.tokens)
		}
		c.tokens = append(c.tokens, t)
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse("default.cue", []byte(defaultCUE))
}

// Load reads a catalog file. The extension selects the format:
// .cue for CUE, .yaml or .yml for YAML.
func Load(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, src)
}

// Parse compiles src, validates it against the schema and builds a Catalog.
func Parse(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	var data cue.Value
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue":
		data = ctx.CompileBytes(src, cue.Filename(filename))
	case ".yaml", ".yml":
		f, err := cueyaml.Extract(filename, src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		data = ctx.BuildFile(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err := data.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate %s: %w", filename, err)
	}

	var file struct {
		Tokens []Token `json:"tokens"`
	}
	if err := unified.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return New(file.Tokens)
}

// Tokens returns the tokens in catalog order.
func (c *Catalog) Tokens() []Token {
	out := make([]Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// Len returns the number of tokens.
func (c *Catalog) Len() int {
	return len(c.tokens)
}

// Lookup returns the token with the given id.
func (c *Catalog) Lookup(id string) (Token, bool) {
	i, ok := c.byID[norm.NFC.String(id)]
	if !ok {
		return Token{}, false
	}
	return c.tokens[i], true
}

// Canonical maps a stored value to a token id. Ids are returned as they are;
// a glyph is mapped to the first token displaying it. Anything else comes
// back unchanged.
func (c *Catalog) Canonical(value string) string {
	v := norm.NFC.String(strings.TrimSpace(value))
	if _, ok := c.byID[v]; ok {
		return v
	}
	if i, ok := c.byGlyph[v]; ok {
		return c.tokens[i].ID
	}
	return value
}

// Glyph returns the display form of id, or ":id:" when the catalog no longer
// lists it. Stored codes outlive catalog edits. A glyph passed in place of an
// id renders as itself.
func (c *Catalog) Glyph(id string) string {
	if t, ok := c.Lookup(c.Canonical(id)); ok {
		return t.Glyph
	}
	return ":" + id + ":"
}

// Glyphs maps ids to glyphs in order.
func (c *Catalog) Glyphs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = c.Glyph(id)
	}
	return out
}
