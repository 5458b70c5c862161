package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelyaml/internal/common/fsutil"
	"modelyaml/internal/config"
	"modelyaml/internal/manager"
)

// settings carries flag values and the configuration resolved from them.
type settings struct {
	out    io.Writer
	errOut io.Writer

	configPath     string
	envFile        string
	definitionsDir string
	logLevel       string
	logFormat      string

	cfg config.Config
	log zerolog.Logger
}

func newSettings(stdout, stderr io.Writer) *settings {
	return &settings{out: stdout, errOut: stderr, cfg: config.Default(), log: zerolog.Nop()}
}

// init resolves the configuration: defaults < config file < environment < flags.
func (s *settings) init(cmd *cobra.Command) error {
	if err := loadDotEnv(s.envFile); err != nil {
		return err
	}
	cfg := config.Default()
	if s.configPath != "" {
		path, err := fsutil.ExpandHome(s.configPath)
		if err != nil {
			return err
		}
		if cfg, err = config.Load(path); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("definitions-dir") {
		cfg.DefinitionsDir = s.definitionsDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = s.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = s.logFormat
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, s.errOut)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.log = logger
	return nil
}

// loadDotEnv loads environment variables from path. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not load %s: %w", path, err)
	}
	return nil
}

func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	switch strings.ToLower(format) {
	case "json":
	case "console", "":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q: want console or json", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func (s *settings) newManager() *manager.Manager {
	return manager.NewWithConfig(manager.ManagerConfig{
		SupportedFormats: s.cfg.SupportedFormats,
		BudgetMB:         s.cfg.MemoryBudgetMB,
		MarginMB:         s.cfg.MemoryMarginMB,
		CacheSize:        s.cfg.CacheSize,
		Parallelism:      s.cfg.Parallelism,
		Logger:           s.log,
	})
}

// loadManager builds a manager holding every definition of the configured directory.
func (s *settings) loadManager() (*manager.Manager, error) {
	m := s.newManager()
	if _, err := m.LoadDir(s.cfg.DefinitionsDir); err != nil {
		return nil, err
	}
	return m, nil
}
