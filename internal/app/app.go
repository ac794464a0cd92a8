// Package app assembles the assessment and report services from
// configuration. Both the HTTP server and assessctl start here.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"medical-assessment/internal/agent"
	"medical-assessment/internal/assessment"
	"medical-assessment/internal/catalog"
	"medical-assessment/internal/config"
	"medical-assessment/internal/platform/database"
	"medical-assessment/internal/platform/mqtt"
	"medical-assessment/internal/platform/redislock"
	"medical-assessment/internal/platform/telegram"
	"medical-assessment/internal/profile"
	"medical-assessment/internal/report"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type App struct {
	Config      *config.Config
	Catalog     *catalog.Catalog
	Assessments assessment.Service
	Reports     report.Service
	Profiles    profile.Service

	log     *zap.Logger
	closers []func()
}

// New opens storage and the optional integrations named in cfg. Close
// releases them.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	cat, err := LoadCatalog(cfg.Catalog.Dir)
	if err != nil {
		return err
	}
	a.Catalog = cat
	a.log.Info("catalog loaded", zap.String("catalog", cat.String()))

	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	a.Profiles = profile.NewService(st.profiles, a.log)

	locker := assessment.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { rc.Close() })
		if err := rc.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		locker = redislock.New(rc, cfg.Redis.LockTTL, a.log)
		a.log.Info("using redis session locks", zap.String("addr", cfg.Redis.Addr))
	}

	events := assessment.NopPublisher()
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pub.Close)
		events = pub
	}

	a.Assessments = assessment.NewService(st.sessions, assessment.NewResolver(cat), locker, events, a.log,
		assessment.WithStoredAnswers(a.Profiles))

	var notifier report.Notifier
	if cfg.ReportsToDoctor() {
		notifier = telegram.NewClient(cfg.Telegram.BotToken, "")
	} else {
		a.log.Warn("TELEGRAM_BOT_TOKEN or DOCTOR_CHAT_ID not set, reports are not forwarded")
	}
	gen := agent.New(agent.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, a.log)
	a.Reports = report.NewService(a.Assessments, gen, st.reports, notifier,
		report.Config{DoctorChatID: cfg.Telegram.DoctorChatID}, a.log)
	return nil
}

type stores struct {
	sessions assessment.Repository
	reports  report.Repository
	profiles profile.Repository
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	cfg := a.Config.Storage
	switch cfg.Backend {
	case config.BackendMemory:
		a.log.Warn("using in-memory storage, sessions are lost on restart")
		return &stores{
			sessions: assessment.NewMemoryRepository(),
			reports:  report.NewMemoryRepository(),
			profiles: profile.NewMemoryRepository(),
		}, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(database.ExpandHome(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}
		a.closeDB(db)
		st := &stores{}
		if st.sessions, err = assessment.NewSQLiteRepository(db); err != nil {
			return nil, err
		}
		if st.reports, err = report.NewSQLiteRepository(db); err != nil {
			return nil, err
		}
		if st.profiles, err = profile.NewSQLiteRepository(db); err != nil {
			return nil, err
		}
		a.log.Info("connected to sqlite", zap.String("path", cfg.SQLitePath))
		return st, nil

	default:
		db, err := database.OpenPostgres(ctx, database.PostgresConfig{
			DSN:      cfg.DatabaseURL,
			MaxConns: cfg.MaxConns,
			MaxIdle:  cfg.MaxIdle,
			Attempts: 10,
		}, a.log)
		if err != nil {
			return nil, err
		}
		a.closeDB(db)
		if err := database.MigrateUp(cfg.MigrationsDir, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		a.log.Info("connected to database, migrations applied")
		return &stores{
			sessions: assessment.NewRepository(db),
			reports:  report.NewRepository(db),
			profiles: profile.NewRepository(db),
		}, nil
	}
}

func (a *App) closeDB(db *sql.DB) {
	a.closers = append(a.closers, func() { db.Close() })
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// LoadCatalog reads the catalog from dir, or the embedded one when dir is
// empty.
func LoadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default()
	}
	cat, err := catalog.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", dir, err)
	}
	return cat, nil
}
