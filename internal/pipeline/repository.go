package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/guards"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Repository is the persistence surface the orchestrator needs. Both
// db.DB and db.MemoryStore satisfy it. Missing rows are (nil, nil).
type Repository interface {
	guards.Reader

	ListJobs(ctx context.Context, docHash string) ([]types.PipelineJob, error)
	ClaimJob(ctx context.Context, docHash string, step types.StepName, maxRetries int, evidence map[string]any) (*types.PipelineJob, bool, error)
	UpsertJob(ctx context.Context, job *types.PipelineJob) error

	UpsertTender(ctx context.Context, t *types.Tender) (*types.Tender, error)
	UpdateTenderStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateChecklistItems(ctx context.Context, docHash string, items []types.ChecklistItem) error
	CreateSimulation(ctx context.Context, rec *types.SimulationRecord) error
	CreateOffer(ctx context.Context, offer *types.Offer) error
}
