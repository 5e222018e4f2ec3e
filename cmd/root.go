// Package cmd implements the cashflow CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagStart      string
	flagEnd        string
	flagDays       int
	flagBalance    string
	flagReduce     []string
	flagSettle     bool
	flagConfigPath string
	flagQuiet      bool
	flagVerbose    bool
)

// logger writes diagnostics to stderr; tables go to stdout.
var logger = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Daily personal cash-flow projection",
	Long: "Project a day-by-day balance from a starting amount, recurring income and\n" +
		"expenses, and reduction factors for discretionary spending.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runFlow,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagStart, "start", "", "First day of the projection, YYYY-MM-DD (default: config or today)")
	pf.StringVar(&flagEnd, "end", "", "Last day of the projection, YYYY-MM-DD (default: start + days - 1)")
	pf.IntVarP(&flagDays, "days", "n", 0, "Number of days to project when --end is not set (default: config)")
	pf.StringVarP(&flagBalance, "balance", "b", "", "Initial balance (default: config)")
	pf.StringArrayVarP(&flagReduce, "reduce", "r", nil, "Reduction factor as Category=factor, repeatable")
	pf.BoolVar(&flagSettle, "settle-first-day", false, "Apply the first day's income and expenses to the initial balance")
	pf.StringVar(&flagConfigPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/cashflow/config.toml)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output")
}

// setup loads .env, then configures logging. It runs before every command.
func setup(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	logger.SetLevel(logLevel())
	return nil
}

func logLevel() logrus.Level {
	switch {
	case flagVerbose:
		return logrus.DebugLevel
	case flagQuiet:
		return logrus.WarnLevel
	}
	if env := os.Getenv("CASHFLOW_LOG_LEVEL"); env != "" {
		lvl, err := logrus.ParseLevel(env)
		if err == nil {
			return lvl
		}
		logger.Warnf("ignoring CASHFLOW_LOG_LEVEL=%q: %v", env, err)
	}
	return logrus.InfoLevel
}

// loadConfig reads the config from --config or the default location.
func loadConfig() (config.Config, error) {
	path := config.Path()
	if flagConfigPath != "" {
		path = flagConfigPath
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	logger.WithField("path", path).Debug("config resolved")
	return cfg, nil
}

// currentOverrides collects the projection flags. Unset flags fall back to
// the config.
func currentOverrides(cmd *cobra.Command) pipeline.Overrides {
	o := pipeline.Overrides{
		Start:   flagStart,
		End:     flagEnd,
		Days:    flagDays,
		Balance: flagBalance,
		Reduce:  flagReduce,
	}
	if cmd.Flags().Changed("settle-first-day") {
		settle := flagSettle
		o.Settle = &settle
	}
	return o
}

// session is everything a command needs after resolving config and flags.
type session struct {
	cfg config.Config
	cat config.Catalog
	in  pipeline.Input
}

func newSession(cmd *cobra.Command) (session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return session{}, err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return session{}, fmt.Errorf("catalog: %w", err)
	}
	in, err := pipeline.ResolveInput(cfg, time.Now(), currentOverrides(cmd))
	if err != nil {
		return session{}, err
	}

	if unknown := pipeline.UnknownCategories(cat, in.Reductions); len(unknown) > 0 {
		logger.Warnf("ignoring reductions for unknown categories: %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(cat.VariableNames(), ", "))
	}
	return session{cfg: cfg, cat: cat, in: in}, nil
}

// project is the shared projection path used by the table commands.
func project(cmd *cobra.Command) (session, model.Projection, error) {
	s, err := newSession(cmd)
	if err != nil {
		return s, model.Projection{}, err
	}

	started := time.Now()
	p, err := pipeline.Project(s.cat, s.in)
	if err != nil {
		return s, p, err
	}
	logger.WithFields(logrus.Fields{
		"start":    s.in.Start.Format(pipeline.DateLayout),
		"end":      s.in.End.Format(pipeline.DateLayout),
		"days":     len(p.Ledger),
		"critical": len(p.Critical),
		"elapsed":  time.Since(started).Round(time.Microsecond),
	}).Debug("projection done")

	if p.Empty() {
		logger.Warn("end date is before start date; nothing to project")
	}
	return s, p, nil
}

func rangeTitle(prefix string, in pipeline.Input) string {
	return fmt.Sprintf("%s  %s → %s", prefix,
		in.Start.Format(pipeline.DateLayout), in.End.Format(pipeline.DateLayout))
}
