package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// -----------------------------------------------------------------------------
// Ledger Methods
// -----------------------------------------------------------------------------

const jobColumns = `id, doc_hash, step, status, retry_count, max_retries, error_code, error_message,
	metadata, evidence, started_at, completed_at, created_at, updated_at`

func scanJob(row pgx.Row) (*types.PipelineJob, error) {
	var job types.PipelineJob
	var metadataJSON, evidenceJSON []byte

	err := row.Scan(&job.ID, &job.DocHash, &job.Step, &job.Status, &job.RetryCount, &job.MaxRetries,
		&job.ErrorCode, &job.ErrorMessage, &metadataJSON, &evidenceJSON,
		&job.StartedAt, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if job.Metadata, err = unmarshalMap(metadataJSON); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of job %s: %w", job.ID, err)
	}
	if job.Evidence, err = unmarshalMap(evidenceJSON); err != nil {
		return nil, fmt.Errorf("failed to decode evidence of job %s: %w", job.ID, err)
	}
	return &job, nil
}

// GetJob retrieves the ledger row for (docHash, step); a missing row is (nil, nil)
func (db *DB) GetJob(ctx context.Context, docHash string, step types.StepName) (*types.PipelineJob, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM pipeline_jobs WHERE doc_hash = $1 AND step = $2`,
		docHash, string(step),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job %s/%s: %w", docHash, step, err)
	}
	return job, nil
}

// ListJobs retrieves every ledger row of a document
func (db *DB) ListJobs(ctx context.Context, docHash string) ([]types.PipelineJob, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM pipeline_jobs WHERE doc_hash = $1 ORDER BY created_at`,
		docHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.PipelineJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ClaimJob atomically moves the (docHash, step) row to running, inserting it
// when absent. The claim only succeeds from a claimable status, so exactly
// one concurrent caller wins; losers get (nil, false, nil).
func (db *DB) ClaimJob(ctx context.Context, docHash string, step types.StepName, maxRetries int, evidence map[string]any) (*types.PipelineJob, bool, error) {
	evidenceJSON, err := marshalJSON(evidence)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal evidence: %w", err)
	}

	job, err := scanJob(db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_jobs (id, doc_hash, step, status, retry_count, max_retries, evidence, started_at)
		 VALUES ($1, $2, $3, 'running', 0, $4, $5, NOW())
		 ON CONFLICT (doc_hash, step) DO UPDATE SET
		     status = 'running',
		     evidence = EXCLUDED.evidence,
		     error_code = NULL,
		     error_message = NULL,
		     started_at = NOW(),
		     updated_at = NOW()
		 WHERE pipeline_jobs.status IN ('pending', 'waiting_input', 'cancelled')
		    OR (pipeline_jobs.status = 'failed' AND pipeline_jobs.retry_count < pipeline_jobs.max_retries)
		 RETURNING `+jobColumns,
		uuid.New(), docHash, string(step), maxRetries, evidenceJSON,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to claim job %s/%s: %w", docHash, step, err)
	}
	return job, true, nil
}

// UpsertJob writes a ledger row. A completed row is never overwritten;
// attempting it returns ErrJobCompleted.
func (db *DB) UpsertJob(ctx context.Context, job *types.PipelineJob) error {
	metadataJSON, err := marshalJSON(job.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	evidenceJSON, err := marshalJSON(job.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_jobs (id, doc_hash, step, status, retry_count, max_retries, error_code,
		                            error_message, metadata, evidence, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (doc_hash, step) DO UPDATE SET
		     status = EXCLUDED.status,
		     retry_count = EXCLUDED.retry_count,
		     max_retries = EXCLUDED.max_retries,
		     error_code = EXCLUDED.error_code,
		     error_message = EXCLUDED.error_message,
		     metadata = EXCLUDED.metadata,
		     evidence = EXCLUDED.evidence,
		     started_at = COALESCE(EXCLUDED.started_at, pipeline_jobs.started_at),
		     completed_at = EXCLUDED.completed_at,
		     updated_at = NOW()
		 WHERE pipeline_jobs.status <> 'completed'`,
		job.ID, job.DocHash, string(job.Step), string(job.Status), job.RetryCount, job.MaxRetries,
		job.ErrorCode, job.ErrorMessage, metadataJSON, evidenceJSON, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job %s/%s: %w", job.DocHash, job.Step, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobCompleted
	}
	return nil
}
