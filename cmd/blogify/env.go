package main

import (
	"fmt"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/debuglog"
	"github.com/pders01/blogify/internal/search"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/storage"
	"github.com/pders01/blogify/internal/validation"
)

// env is what every command runs against: the loaded config, the session
// database and an API client authenticated from it.
type env struct {
	cfg     *config.Config
	paths   *validation.PathHandler
	db      *storage.Store
	client  *api.Client
	session *state.SessionStore
}

func openEnv() (*env, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Paths given on the command line are trusted as-is. Paths from the
	// config file stay inside blogify's own directories.
	paths := validation.NewSecurePathHandler()
	if flags.db != "" {
		paths = validation.NewPermissivePathHandler()
		cfg.Database.Path = flags.db
	}

	if err := setupLogging(cfg, paths); err != nil {
		return nil, err
	}

	baseURL, err := validation.NewAPIURLValidator().ValidateAndNormalize(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api.base_url: %w", err)
	}
	cfg.API.BaseURL = baseURL

	dbPath, err := paths.DBPath(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	db, err := storage.NewStore(dbPath, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg)
	session, err := state.NewSessionStore(client, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	client.SetTokenSource(session)
	client.OnUnauthorized(session.Invalidate)

	debuglog.WithFields(map[string]interface{}{
		"api": baseURL,
		"db":  dbPath,
	}).Debugf("environment ready")

	return &env{
		cfg:     cfg,
		paths:   paths,
		db:      db,
		client:  client,
		session: session,
	}, nil
}

func setupLogging(cfg *config.Config, paths *validation.PathHandler) error {
	level := debuglog.ParseLogLevel(cfg.Log.Level)
	if level == debuglog.LevelOff {
		return debuglog.Setup(level)
	}
	logPath, err := paths.LogPath(cfg.Log.Path)
	if err != nil {
		return fmt.Errorf("invalid log path: %w", err)
	}
	if err := debuglog.Setup(level, logPath); err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	return nil
}

// openIndex opens the configured search index, in memory when no path is set.
func (e *env) openIndex() (*search.BleveEngine, error) {
	indexPath, err := e.paths.IndexPath(e.cfg.Search.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("invalid search index path: %w", err)
	}
	return search.NewBleveEngine(indexPath)
}

func (e *env) Close() error {
	debuglog.Close()
	return e.db.Close()
}

func (e *env) requireAuth() error {
	if !e.session.IsAuthenticated() {
		return fmt.Errorf("not signed in: run 'blogify login' first")
	}
	return nil
}
