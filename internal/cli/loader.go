package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/ledgerflow/internal/config"
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/store"
)

// LoadError is a command setup failure with a CLI error code and, for
// config errors, the CUE position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// loadConfig reads the config file, mapping failures to LoadErrors.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, &LoadError{Code: ErrCodeConfig, Message: "--config is required"}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	cfg, err := config.Load(path)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			return nil, &LoadError{Code: ErrCodeConfig, Message: cfgErr.Message, Pos: cfgErr.Pos}
		}
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return cfg, nil
}

// databasePath picks the --db flag over the config's database field.
func databasePath(flag string, cfg *config.Config) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg != nil && cfg.Database != "" {
		return cfg.Database, nil
	}
	return "", &LoadError{Code: ErrCodeStore, Message: "no database: pass --db or set database in the config"}
}

// session is an engine opened on a persistent store.
type session struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads the config, opens the database and constructs the
// engine for the configured variant.
func openSession(ctx context.Context, configPath, dbFlag string, logger *slog.Logger) (*session, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	dbPath, err := databasePath(dbFlag, cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("open database: %v", err)}
	}
	e, err := engine.New(ctx, st, cfg.App(), cfg.Settings(), engine.WithLogger(logger))
	if err != nil {
		st.Close()
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}

	logger.Debug("session opened", "variant", cfg.Variant, "app", cfg.AppAddress, "db", dbPath)
	return &session{cfg: cfg, store: st, engine: e}, nil
}

// loadErrorCode returns the CLI code for err.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// loadErrorExit reports a setup failure and converts it to an exit error.
func loadErrorExit(f *OutputFormatter, err error) error {
	msg := err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg = loadErr.Message
		if p := loadErr.Pos; p.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", p.Filename(), p.Line(), p.Column(), msg)
		}
	}
	if outErr := f.Error(loadErrorCode(err), msg, nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "command failed", err)
}
