package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"model-promotion-service/internal/core/domain"
	ports "model-promotion-service/internal/core/ports/output"
)

// registryRepo implements ports.RegistryStore on Postgres. Version numbers
// are assigned inside the insert statement from the current maximum for
// the model name, and every listing is ORDER BY version so callers can
// rely on ascending order.
type registryRepo struct {
	pool *pgxpool.Pool
}

func NewRegistryStore(pool *pgxpool.Pool) ports.RegistryStore {
	return &registryRepo{pool: pool}
}

func (r *registryRepo) RegisterVersion(ctx context.Context, req ports.RegisterRequest) (*domain.ModelVersion, error) {
	metricsJSON, err := json.Marshal(orEmptyMetrics(req.Metrics))
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}
	tagsJSON, err := json.Marshal(orEmptyTags(req.Tags))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO model_version
			(model_name, version, stage, run_id, artifact_location, metrics, tags, created_at, updated_at)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $5, $6, $7, $7
		FROM model_version WHERE model_name = $1
		RETURNING version
	`
	var version int
	err = r.pool.QueryRow(ctx, query,
		req.ModelName, string(domain.StageUnstaged), req.RunID,
		req.ArtifactLocation, metricsJSON, tagsJSON, now,
	).Scan(&version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "model_version_run_id_key" {
			return nil, domain.ErrDuplicateRun
		}
		return nil, storeError("register version", err)
	}

	return &domain.ModelVersion{
		ModelName:        req.ModelName,
		Version:          version,
		Stage:            domain.StageUnstaged,
		RunID:            req.RunID,
		ArtifactLocation: req.ArtifactLocation,
		Metrics:          orEmptyMetrics(req.Metrics),
		Tags:             req.Tags,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (r *registryRepo) ListVersions(ctx context.Context, name string, stage domain.Stage) ([]*domain.ModelVersion, error) {
	query := `
		SELECT model_name, version, stage, run_id, artifact_location,
			   metrics, tags, created_at, updated_at
		FROM model_version
		WHERE model_name = $1 AND ($2 = '' OR stage = $2)
		ORDER BY version
	`
	rows, err := r.pool.Query(ctx, query, name, string(stage))
	if err != nil {
		return nil, storeError("list versions", err)
	}
	defer rows.Close()

	var versions []*domain.ModelVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list versions", err)
	}
	return versions, nil
}

func (r *registryRepo) GetRunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	var metricsJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT metrics FROM model_version WHERE run_id = $1`, runID,
	).Scan(&metricsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, storeError("get run metrics", err)
	}

	var m map[string]float64
	if err := json.Unmarshal(metricsJSON, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return m, nil
}

func (r *registryRepo) FindByRunID(ctx context.Context, name string, runID string) (*domain.ModelVersion, error) {
	query := `
		SELECT model_name, version, stage, run_id, artifact_location,
			   metrics, tags, created_at, updated_at
		FROM model_version
		WHERE model_name = $1 AND run_id = $2
	`
	v, err := scanVersion(r.pool.QueryRow(ctx, query, name, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, storeError("find version by run", err)
	}
	return v, nil
}

func (r *registryRepo) TransitionStage(ctx context.Context, name string, version int, newStage domain.Stage) error {
	if !newStage.IsValid() {
		return domain.ErrInvalidStage
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storeError("begin transition", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT stage FROM model_version WHERE model_name = $1 AND version = $2 FOR UPDATE`,
		name, version,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrVersionNotFound
		}
		return storeError("lock version", err)
	}

	if !domain.Stage(current).CanTransitionTo(newStage) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, newStage)
	}

	_, err = tx.Exec(ctx,
		`UPDATE model_version SET stage = $1, updated_at = $2 WHERE model_name = $3 AND version = $4`,
		string(newStage), time.Now().UTC(), name, version,
	)
	if err != nil {
		return storeError("update stage", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError("commit transition", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*domain.ModelVersion, error) {
	var (
		v           domain.ModelVersion
		stage       string
		metricsJSON []byte
		tagsJSON    []byte
	)
	err := row.Scan(&v.ModelName, &v.Version, &stage, &v.RunID,
		&v.ArtifactLocation, &metricsJSON, &tagsJSON, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Stage = domain.Stage(stage)
	if err := json.Unmarshal(metricsJSON, &v.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(tagsJSON, &v.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &v, nil
}

// storeError maps infrastructure failures onto the registry-unavailable
// kind so callers can branch without string matching.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrRegistryUnavailable, err)
}

func orEmptyMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func orEmptyTags(t map[string]string) map[string]string {
	if t == nil {
		return map[string]string{}
	}
	return t
}
