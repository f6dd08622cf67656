// Package cmd implements the tripburn CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cloudsync"
	"github.com/theirongolddev/tripburn/internal/config"
	"github.com/theirongolddev/tripburn/internal/logging"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/registry"
	"github.com/theirongolddev/tripburn/internal/remote"
	"github.com/theirongolddev/tripburn/internal/store"
	"github.com/theirongolddev/tripburn/internal/tracker"
)

const ownerSetting = "owner_id"

var (
	flagConfig      string
	flagDB          string
	flagDestination string
	flagQuiet       bool
	flagOffline     bool
)

var rootCmd = &cobra.Command{
	Use:          "tripburn",
	Short:        "Travel budget tracker",
	Long:         "Track trip spending per destination against a budget, with optional sync and sharing.",
	RunE:         runSummary,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Database path (default <data dir>/tripburn.db)")
	rootCmd.PersistentFlags().StringVarP(&flagDestination, "destination", "D", "", "Destination slug or name (default: active)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "Do not contact the sync backend")
}

// session is the shared open path used by all commands.
type session struct {
	cfg     config.Config
	cfgPath string
	db      *store.DB
	tr      *tracker.Tracker
	log     *logrus.Logger
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

func loadConfig() (config.Config, error) {
	config.LoadDotEnv()
	return config.LoadFrom(configPath())
}

// openSession loads config, opens the database and builds the tracker. observer may
// be nil.
func openSession(observer cloudsync.Observer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	dbPath := flagDB
	if dbPath == "" {
		dbPath = config.DBPath(cfg)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	opts := tracker.Options{
		DB:             db,
		Debounce:       cfg.Remote.Debounce(),
		RotateInterval: cfg.Alerts.RotateInterval(),
		HomeSymbol:     cfg.General.HomeSymbol,
		Logger:         log,
		Observer:       observer,
	}
	if cfg.Remote.Enabled() && !flagOffline {
		backend, err := remote.NewClient(remote.Options{
			URL:               cfg.Remote.URL,
			APIKey:            cfg.Remote.APIKey,
			RequestsPerSecond: cfg.Remote.RequestsPerSecond,
			Timeout:           cfg.Remote.Timeout(),
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		owner, err := ownerID(cfg, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		opts.Backend = backend
		opts.OwnerID = owner
	}

	tr, err := tracker.Open(opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if def := cfg.General.DefaultDestination; def != "" && tr.Active() == "" {
		_ = tr.Select(registry.Slugify(def))
	}

	return &session{cfg: cfg, cfgPath: configPath(), db: db, tr: tr, log: log}, nil
}

// ownerID returns the configured owner, or a per-database id created on first use.
func ownerID(cfg config.Config, db *store.DB) (string, error) {
	if cfg.Remote.OwnerID != "" {
		return cfg.Remote.OwnerID, nil
	}
	id, err := db.GetSetting(ownerSetting)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := db.SetSetting(ownerSetting, id); err != nil {
		return "", err
	}
	return id, nil
}

// close flushes pending pushes and releases the database.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Remote.Timeout()+5*time.Second)
	defer cancel()
	if err := s.tr.Close(ctx); err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Sync: %v (changes are saved locally)\n", err)
	}
	_ = s.db.Close()
}

// slug resolves --destination to a slug, "" meaning the active destination.
func (s *session) slug() (string, error) {
	if flagDestination == "" {
		if s.tr.Active() == "" {
			return "", tracker.ErrNoDestination
		}
		return "", nil
	}
	for _, d := range s.tr.Destinations() {
		if d.Slug == flagDestination || d.Slug == registry.Slugify(flagDestination) {
			return d.Slug, nil
		}
	}
	return "", fmt.Errorf("%w: %s", registry.ErrUnknownDestination, flagDestination)
}

// destination returns the config selected by --destination.
func (s *session) destination() (model.DestinationConfig, error) {
	slug, err := s.slug()
	if err != nil {
		return model.DestinationConfig{}, err
	}
	return s.tr.Destination(slug)
}

func (s *session) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*s.cfg.Remote.Timeout())
}

func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
}

func noDestinationHint(err error) error {
	if errors.Is(err, tracker.ErrNoDestination) {
		return errors.New("no destination selected; add one with `tripburn dest add <name>` or pick one with `tripburn dest use <slug>`")
	}
	return err
}
