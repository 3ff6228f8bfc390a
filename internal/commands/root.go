package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/config"
	"github.com/klabast/wb-services/timetable-roster/internal/roster"
	"github.com/klabast/wb-services/timetable-roster/internal/storage"
)

// Assets are the embedded web files served by the serve command.
type Assets struct {
	Static fs.FS
	Index  []byte
}

// ErrCancelled is returned when the user aborts an interactive form.
var ErrCancelled = errors.New("commands: cancelled by user")

// env carries the global flags and, once opened, the roster they point at.
type env struct {
	configPath string
	dataDir    string
	backend    string
	verbose    bool
	assets     Assets

	cfg     *config.Config
	logger  *slog.Logger
	store   storage.Backend
	adapter *storage.Adapter
	roster  *roster.Roster
}

// NewRootCmd builds the complete command tree.
func NewRootCmd(assets Assets) *cobra.Command {
	e := &env{assets: assets}

	root := &cobra.Command{
		Use:   "timetable-roster",
		Short: "School timetable roster",
		Long: `timetable-roster keeps the teachers, classes, subjects and staff meetings of a
school, plus the weekly hour budgets of special-support classes.

Data lives in a local key-value store (a directory of JSON files, a SQLite
file or memory). The same roster can be edited from this CLI or served over
HTTP with the serve command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return e.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.configPath, "config", "", "config file (default $ROSTER_CONFIG or ./"+config.DefaultFileName+")")
	pf.StringVar(&e.dataDir, "data-dir", "", "data directory (overrides config)")
	pf.StringVar(&e.backend, "backend", "", "storage backend: file, sqlite or memory (overrides config)")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(e),
		newExportCmd(e),
		newImportCmd(e),
		newResetCmd(e),
		newCleanupCmd(e),
		newClassesCmd(e),
		newTeachersCmd(e),
		newSubjectsCmd(e),
		newMeetingsCmd(e),
		newHoursCmd(e),
		newSummaryCmd(e),
		newConfigCmd(e),
	)
	return root
}

// Execute runs the CLI.
func Execute(assets Assets) error {
	return NewRootCmd(assets).Execute()
}

// loadConfig resolves the config file and applies flag overrides.
func (e *env) loadConfig(cmd *cobra.Command) error {
	if e.cfg != nil {
		return nil
	}
	path := config.ResolvePath(e.configPath)
	cfg, found, err := config.Read(path)
	if err != nil {
		return err
	}
	if e.dataDir != "" {
		cfg.Storage.DataDir = e.dataDir
	}
	if e.backend != "" {
		cfg.Storage.Backend = e.backend
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = cfg.Log.NewLogger(cmd.ErrOrStderr(), e.verbose)
	if !found {
		e.logger.Debug("config file not found, using defaults", "path", path)
	}
	return nil
}

// open loads the config and the roster it points at.
func (e *env) open(cmd *cobra.Command) (*roster.Roster, error) {
	if e.roster != nil {
		return e.roster, nil
	}
	if err := e.loadConfig(cmd); err != nil {
		return nil, err
	}

	b, err := storage.Open(e.cfg.Storage.Backend, e.cfg.Storage.DataDir, e.cfg.Storage.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	e.store = b
	e.adapter = storage.NewAdapter(b, e.logger)
	e.roster = roster.Open(e.adapter, roster.WithLogger(e.logger))

	e.logger.Debug("opened roster", "backend", e.cfg.Storage.Backend, "data_dir", e.cfg.Storage.DataDir)
	return e.roster, nil
}

func (e *env) close() error {
	if e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	return err
}

// withRoster adapts a roster-backed command body to cobra's RunE.
func withRoster(e *env, run func(cmd *cobra.Command, args []string, r *roster.Roster) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r, err := e.open(cmd)
		if err != nil {
			return err
		}
		return run(cmd, args, r)
	}
}
