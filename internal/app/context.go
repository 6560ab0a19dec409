package app

import (
	"database/sql"
	"log"

	"mockline/internal/config"
	"mockline/internal/db"
	"mockline/internal/engine"
	"mockline/internal/migrate"
	"mockline/internal/repo"
)

// Context is the resolved runtime for one command invocation: the open
// ledger database, the effective config and an engine wired to both.
type Context struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Engine    engine.Engine
}

// Open wires a workspace into a ready engine: database, migrations and
// the config fallback chain. configPath overrides the workspace config;
// empty loads mockline.yml, seeding the default template on first use.
func Open(workspace, configPath string) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	cfg, err := ResolveConfig(workspace, configPath)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		Workspace: workspace,
		DB:        conn,
		Config:    cfg,
		Engine:    engine.New(conn, cfg),
	}, nil
}

// OpenLedger opens just the migrated run ledger, for commands that read
// history without touching mockline.yml. Config and Engine stay zero.
func OpenLedger(workspace string) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{Workspace: workspace, DB: conn}, nil
}

// ResolveConfig applies the config fallback chain: an explicit path
// wins, otherwise the workspace mockline.yml, created from the default
// template on first use.
func ResolveConfig(workspace, configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.FromFile(configPath)
	}
	cfg, created, err := config.EnsureDefault(workspace)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("created default config %s", config.Path(workspace))
	}
	return cfg, nil
}

func (c *Context) Close() error {
	return c.DB.Close()
}

// Repo exposes the raw ledger for commands that bypass the engine.
func (c *Context) Repo() repo.Repo {
	return repo.Repo{DB: c.DB}
}
