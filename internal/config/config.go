// Package config loads and validates ledgerflow configuration files.
//
// Configuration is written in CUE and unified with the embedded #Config
// schema, so defaults and constraints live in one place:
//
//	variant:     "payroll"
//	admin:       "HR"
//	app_address: "PAYROLL"
//	asset_id:    31566704
//	cycle_secs:  604800
package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/escrow"
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/loan"
	"github.com/roach88/ledgerflow/internal/payroll"
)

//go:embed schema.cue
var schemaSource string

// Config is a validated configuration.
type Config struct {
	Variant    string `json:"variant"`
	Admin      string `json:"admin,omitempty"`
	AppAddress string `json:"app_address"`
	AssetID    uint64 `json:"asset_id"`
	CycleSecs  uint64 `json:"cycle_secs"`
	MaxListing int    `json:"max_listing"`
	Database   string `json:"database,omitempty"`
}

var variants = map[string]engine.App{
	escrow.Name:  escrow.App{},
	loan.Name:    loan.App{},
	payroll.Name: payroll.App{},
}

// Variants returns the names of the known application variants, sorted.
func Variants() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Error is a configuration failure, with the CUE position when known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema. filename is used in error
// positions only.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, convert(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, convert(err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, convert(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the constraints the schema cannot express.
func (c *Config) Validate() error {
	if _, ok := variants[c.Variant]; !ok {
		return &Error{Message: fmt.Sprintf("unknown variant %q (want one of %s)", c.Variant, strings.Join(Variants(), ", "))}
	}
	if err := c.Settings().Validate(); err != nil {
		return &Error{Message: err.Error()}
	}
	if v, ok := c.App().(engine.SettingsValidator); ok {
		if err := v.ValidateSettings(c.Settings()); err != nil {
			return &Error{Message: err.Error()}
		}
	}
	return nil
}

// Settings returns the engine settings described by the configuration.
func (c *Config) Settings() engine.Settings {
	return engine.Settings{
		Admin:      ir.Address(c.Admin),
		App:        ir.Address(c.AppAddress),
		AssetID:    c.AssetID,
		CycleSecs:  c.CycleSecs,
		MaxListing: c.MaxListing,
	}
}

// App returns the application variant the configuration selects.
func (c *Config) App() engine.App {
	return variants[c.Variant]
}

// convert turns a CUE error list into an *Error carrying the first
// position. The remaining messages are joined.
func convert(err error) error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return &Error{Message: err.Error()}
	}
	msgs := make([]string, 0, len(list))
	for _, e := range list {
		msgs = append(msgs, e.Error())
	}
	return &Error{Message: strings.Join(msgs, "; "), Pos: list[0].Position()}
}
