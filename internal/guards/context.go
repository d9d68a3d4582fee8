package guards

import (
	"context"

	"github.com/google/uuid"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/pipeline/steps"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Reader is the read-only persistence surface available to guards
type Reader interface {
	steps.JobReader
	GetTender(ctx context.Context, id uuid.UUID) (*types.Tender, error)
	GetTenderByDocHash(ctx context.Context, docHash string) (*types.Tender, error)
	GetLatestSimulation(ctx context.Context, docHash string) (*types.SimulationRecord, error)
}

// Context is the input of one guard evaluation. Repository reads are
// memoized for the lifetime of the evaluation.
type Context struct {
	Step    types.StepName
	DocHash string
	Job     types.JobContext

	reader Reader

	metaDone bool
	meta     *types.DocumentMetadata
	metaErr  error

	tenderDone bool
	tender     *types.Tender
	tenderErr  error

	simDone bool
	sim     *types.SimulationRecord
	simErr  error
}

// NewContext creates a guard evaluation context
func NewContext(step types.StepName, docHash string, job types.JobContext, reader Reader) *Context {
	return &Context{Step: step, DocHash: docHash, Job: job, reader: reader}
}

// Metadata decodes the analysis data supplied with the job
func (c *Context) Metadata() (*types.DocumentMetadata, error) {
	if !c.metaDone {
		c.meta, c.metaErr = types.ParseDocumentMetadata(c.Job.AnalysisData)
		c.metaDone = true
	}
	return c.meta, c.metaErr
}

// Tender returns the persisted tender, by id when the job carries one and by
// document hash otherwise. A missing tender is (nil, nil).
func (c *Context) Tender(ctx context.Context) (*types.Tender, error) {
	if c.tenderDone {
		return c.tender, c.tenderErr
	}
	c.tenderDone = true
	if c.reader == nil {
		return nil, nil
	}
	if id, err := uuid.Parse(c.Job.TenderID); err == nil {
		c.tender, c.tenderErr = c.reader.GetTender(ctx, id)
		if c.tender != nil || c.tenderErr != nil {
			return c.tender, c.tenderErr
		}
	}
	c.tender, c.tenderErr = c.reader.GetTenderByDocHash(ctx, c.DocHash)
	return c.tender, c.tenderErr
}

// Facts merges the current analysis data with the persisted tender
func (c *Context) Facts(ctx context.Context) (types.Facts, error) {
	tender, err := c.Tender(ctx)
	if err != nil {
		return types.Facts{}, err
	}
	meta, err := c.Metadata()
	if err != nil {
		meta = nil
	}
	return types.MergeFacts(meta, tender), nil
}

// LatestSimulation returns the newest stored simulation for the document
func (c *Context) LatestSimulation(ctx context.Context) (*types.SimulationRecord, error) {
	if c.simDone {
		return c.sim, c.simErr
	}
	c.simDone = true
	if c.reader == nil {
		return nil, nil
	}
	c.sim, c.simErr = c.reader.GetLatestSimulation(ctx, c.DocHash)
	return c.sim, c.simErr
}

// LedgerJob returns the ledger row of another step of the same document
func (c *Context) LedgerJob(ctx context.Context, step types.StepName) (*types.PipelineJob, error) {
	if c.reader == nil {
		return nil, nil
	}
	return c.reader.GetJob(ctx, c.DocHash, step)
}
