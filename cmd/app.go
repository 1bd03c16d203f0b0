package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tieubaoca/research-assistant/config"
	"github.com/tieubaoca/research-assistant/database"
	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/repository"
	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
)

// app holds the wired services for one process. Every command builds one
// and closes it on exit.
type app struct {
	cfg      *config.Config
	log      logging.Logger
	users    service.UserService
	docs     *service.DocumentService
	research *service.ResearchService
	search   *service.SearchService
	wiki     *service.WikipediaService
	saver    service.ReportSaver
	closers  []func() error
}

func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level), nil
}

// newApp validates cfg before opening anything, so a missing API key fails
// fast without touching the network.
func newApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	repo, err := a.openUserRepo(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.users = service.NewUserService(repo, log, cfg.SessionTTL)
	a.docs = service.NewDocumentService(types.DocumentServiceConfig{PDFEngine: cfg.PDF.Engine}, log)

	ai, err := newAIService(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, ai.Close)

	if cfg.Tools.Search.APIKey != "" && cfg.Tools.Search.EngineID != "" {
		a.search = service.NewSearchService(cfg.Tools.Search.APIKey, cfg.Tools.Search.EngineID)
	}
	a.wiki = service.NewWikipediaService(cfg.Tools.Wikipedia.BaseURL, nil)
	if a.saver, err = service.NewReportSaver(ctx, cfg.Tools.Save); err != nil {
		a.Close()
		return nil, err
	}

	var agent *service.Agent
	if cfg.Agent {
		if agent, err = service.NewAgent(ai, a.tools(), log); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.research = service.NewResearchService(ai, agent, log)

	log.Info(ctx, "services ready", "provider", cfg.Provider, "model", cfg.Model, "agent", cfg.Agent, "store", cfg.Database.Driver)
	return a, nil
}

func (a *app) tools() []types.ToolSpec {
	tools := make([]types.ToolSpec, 0, 3)
	if a.search != nil {
		tools = append(tools, a.search.Tool())
	}
	tools = append(tools, a.wiki.Tool(), service.SaveTool(a.saver))
	return tools
}

func (a *app) openUserRepo(ctx context.Context) (repository.UserRepo, error) {
	db := a.cfg.Database
	switch db.Driver {
	case config.DriverMongo:
		client, err := database.NewMongoClient(ctx, db.DSN, uint64(max(db.MaxOpenConns, 0)))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		coll := client.Database(db.Name).Collection(database.UsersCollection)
		if err := database.EnsureUserIndexes(ctx, coll); err != nil {
			return nil, fmt.Errorf("failed to create user indexes: %w", err)
		}
		return repository.NewMongoUserRepo(coll), nil
	case config.DriverPostgres, config.DriverSQLite:
		sqlDB, err := database.Open(ctx, db)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		dialect := repository.SQLiteDialect
		if db.Driver == config.DriverPostgres {
			dialect = repository.PostgresDialect
		}
		return repository.NewSQLUserRepo(sqlDB, dialect), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, db.Driver)
}

func newAIService(ctx context.Context, cfg *config.Config, log logging.Logger) (service.AIService, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return service.NewGeminiService(ctx, cfg.APIKey(), cfg.Model, log)
	case config.ProviderOpenAI:
		return service.NewOpenAIService(cfg.AIEndpoint, cfg.APIKey(), cfg.Model, log), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
