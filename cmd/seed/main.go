// Package main seeds a demo org, blueprint, and submission for local
// development and manual testing against a running engine.
//
// Import Path: enrichpipe.io/engine/cmd/seed
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"enrichpipe.io/engine/internal/app"
	"enrichpipe.io/engine/internal/config"
	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/infrastructure"
	"enrichpipe.io/engine/internal/pkg/logger"
	"enrichpipe.io/engine/internal/submission"
)

// fixture mirrors cmd/seed/fixtures/demo.yaml: one org, one blueprint with
// its ordered steps, and one demo submission to run through it.
type fixture struct {
	Org struct {
		OrgID string `yaml:"org_id"`
		Name  string `yaml:"name"`
	} `yaml:"org"`

	Blueprint struct {
		BlueprintID string `yaml:"blueprint_id"`
		Name        string `yaml:"name"`
		Steps       []struct {
			Position    int            `yaml:"position"`
			OperationID string         `yaml:"operation_id"`
			FanOut      bool           `yaml:"fan_out"`
			StepConfig  map[string]any `yaml:"step_config"`
		} `yaml:"steps"`
	} `yaml:"blueprint"`

	Submission struct {
		CompanyID string `yaml:"company_id"`
		Entities  []struct {
			EntityType string         `yaml:"entity_type"`
			Fields     map[string]any `yaml:"fields"`
		} `yaml:"entities"`
	} `yaml:"submission"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fixturePath := flag.String("fixture", "cmd/seed/fixtures/demo.yaml", "path to a seed fixture YAML file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	fx, err := loadFixture(*fixturePath)
	if err != nil {
		return fmt.Errorf("load fixture %s: %w", *fixturePath, err)
	}

	ctx := context.Background()

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer application.Shutdown()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	if err := seedOrgAndBlueprint(ctx, application.DB, fx); err != nil {
		return fmt.Errorf("seed org/blueprint: %w", err)
	}
	logger.Info("seeded blueprint", "blueprint_id", fx.Blueprint.BlueprintID)

	sub, err := submitDemoBatch(ctx, application.Submissions, fx)
	if err != nil {
		return fmt.Errorf("submit demo batch: %w", err)
	}
	logger.Info("submitted demo batch",
		"submission_id", sub.SubmissionID.String(),
		"entity_count", len(sub.Entities),
	)

	return nil
}

func loadFixture(path string) (fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fixture{}, err
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fixture{}, fmt.Errorf("parse yaml: %w", err)
	}
	return fx, nil
}

// seedOrgAndBlueprint upserts the org, blueprint, and blueprint_steps rows
// idempotently so re-running the seed tool is a no-op on an already-seeded
// database.
func seedOrgAndBlueprint(ctx context.Context, db *infrastructure.DatabaseClients, fx fixture) error {
	pool := db.GetWorkerPool()

	if _, err := pool.Exec(ctx, `
		INSERT INTO orgs (org_id, name) VALUES ($1, $2)
		ON CONFLICT (org_id) DO UPDATE SET name = EXCLUDED.name`,
		fx.Org.OrgID, fx.Org.Name); err != nil {
		return fmt.Errorf("upsert org: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO blueprints (blueprint_id, org_id, name, is_active)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (blueprint_id) DO UPDATE SET name = EXCLUDED.name, is_active = true`,
		fx.Blueprint.BlueprintID, fx.Org.OrgID, fx.Blueprint.Name); err != nil {
		return fmt.Errorf("upsert blueprint: %w", err)
	}

	if _, err := pool.Exec(ctx, `DELETE FROM blueprint_steps WHERE blueprint_id = $1`, fx.Blueprint.BlueprintID); err != nil {
		return fmt.Errorf("clear blueprint steps: %w", err)
	}

	for _, step := range fx.Blueprint.Steps {
		cfgBytes, err := json.Marshal(step.StepConfig)
		if err != nil {
			return fmt.Errorf("marshal step_config at position %d: %w", step.Position, err)
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO blueprint_steps (blueprint_id, position, operation_id, step_config, fan_out, is_enabled)
			VALUES ($1, $2, $3, $4, $5, true)`,
			fx.Blueprint.BlueprintID, step.Position, step.OperationID, cfgBytes, step.FanOut); err != nil {
			return fmt.Errorf("insert blueprint step %d: %w", step.Position, err)
		}
	}

	return nil
}

func submitDemoBatch(ctx context.Context, svc *submission.Service, fx fixture) (*domain.Submission, error) {
	entities := make([]domain.SeedEntity, 0, len(fx.Submission.Entities))
	for _, e := range fx.Submission.Entities {
		entities = append(entities, domain.SeedEntity{
			EntityType: domain.EntityType(e.EntityType),
			Fields:     e.Fields,
		})
	}

	return svc.Submit(ctx, submission.SubmitRequest{
		OrgID:       fx.Org.OrgID,
		CompanyID:   fx.Submission.CompanyID,
		BlueprintID: fx.Blueprint.BlueprintID,
		Entities:    entities,
	})
}
