// Package app is the composition root: it wires the Entity State Store,
// Operation Registry, Pipeline Runtime, task dispatcher, and Submission &
// Batch API into one running process.
//
// Import Path: enrichpipe.io/engine/internal/app
package app

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/riverqueue/river"

	"enrichpipe.io/engine/internal/app/httpapi"
	"enrichpipe.io/engine/internal/config"
	"enrichpipe.io/engine/internal/dispatcher"
	"enrichpipe.io/engine/internal/entitystore"
	"enrichpipe.io/engine/internal/infrastructure"
	"enrichpipe.io/engine/internal/jobs"
	"enrichpipe.io/engine/internal/pipeline"
	"enrichpipe.io/engine/internal/pkg/worker"
	"enrichpipe.io/engine/internal/registry"
	"enrichpipe.io/engine/internal/submission"
)

// Application holds composed application dependencies.
type Application struct {
	Config      *config.Config
	Router      *chi.Mux
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	Submissions *submission.Service
}

// Bootstrap initializes every collaborator and wires the Submission & Batch
// API router over them.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		RunsPoolSize:     cfg.Worker.RunsPoolSize,
		ProviderPoolSize: cfg.Worker.ProviderPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	pool := db.GetWorkerPool()

	entities := pipeline.EntityStores{
		Company: entitystore.NewStore(pool, entitystore.CompanySchema),
		Person:  entitystore.NewStore(pool, entitystore.PersonSchema),
		Job:     entitystore.NewStore(pool, entitystore.JobSchema),
	}

	reg := registry.New()
	registry.RegisterBuiltins(reg)

	runRepo := infrastructure.NewRunRepository(pool)
	blueprintRepo := infrastructure.NewBlueprintRepository(pool)
	submissionRepo := infrastructure.NewSubmissionRepository(pool, runRepo)
	entityQueries := infrastructure.NewEntityQueries(pool)

	riverDispatcher := dispatcher.NewRiverDispatcher(nil)
	engine := pipeline.NewEngine(reg, runRepo, entities, riverDispatcher, pipeline.Config{
		MaxFanoutDepth: cfg.Pipeline.MaxFanoutDepth,
	})

	stepWorker := jobs.NewPipelineStepWorker(runRepo, engine, riverDispatcher)
	workers := river.NewWorkers()
	river.AddWorker(workers, stepWorker)

	if err := db.InitRiverClient(workers, cfg.River); err != nil {
		db.Close()
		return nil, fmt.Errorf("init river client: %w", err)
	}
	riverDispatcher.SetClient(db.RiverClient)

	submissionSvc := submission.NewService(blueprintRepo, submissionRepo, riverDispatcher, runRepo, entityQueries, entityQueries)

	return &Application{
		Config:      cfg,
		Router:      newRouter(cfg, httpapi.NewHandler(submissionSvc)),
		DB:          db,
		Pools:       pools,
		Submissions: submissionSvc,
	}, nil
}
