package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

type jobKey struct {
	docHash string
	step    types.StepName
}

// MemoryStore is an in-process repository with the same semantics as DB:
// atomic claims, immutable completed rows and (nil, nil) for missing rows.
// Used by the CLI when no database is configured and by tests.
type MemoryStore struct {
	mu sync.Mutex

	jobs        map[jobKey]*types.PipelineJob
	tenders     map[uuid.UUID]*types.Tender
	checklists  map[string][]types.ChecklistItem
	simulations map[string][]types.SimulationRecord
	offers      map[string][]types.Offer

	ledgerWrites int
	now          func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:        make(map[jobKey]*types.PipelineJob),
		tenders:     make(map[uuid.UUID]*types.Tender),
		checklists:  make(map[string][]types.ChecklistItem),
		simulations: make(map[string][]types.SimulationRecord),
		offers:      make(map[string][]types.Offer),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// LedgerWrites returns the number of successful ledger mutations
func (m *MemoryStore) LedgerWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledgerWrites
}

// GetJob implements the repository contract
func (m *MemoryStore) GetJob(_ context.Context, docHash string, step types.StepName) (*types.PipelineJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobKey{docHash, step}]
	if !ok {
		return nil, nil
	}
	return cloneJob(job)
}

// ListJobs implements the repository contract
func (m *MemoryStore) ListJobs(_ context.Context, docHash string) ([]types.PipelineJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []types.PipelineJob
	for k, job := range m.jobs {
		if k.docHash == docHash {
			c, err := cloneJob(job)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, *c)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].Step < jobs[j].Step
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// ClaimJob implements the repository contract
func (m *MemoryStore) ClaimJob(_ context.Context, docHash string, step types.StepName, maxRetries int, evidence map[string]any) (*types.PipelineJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, err := cloneMap(evidence)
	if err != nil {
		return nil, false, err
	}

	now := m.now()
	key := jobKey{docHash, step}
	job, ok := m.jobs[key]
	if !ok {
		job = &types.PipelineJob{
			ID:         uuid.New(),
			DocHash:    docHash,
			Step:       step,
			MaxRetries: maxRetries,
			CreatedAt:  now,
		}
		m.jobs[key] = job
	} else if !job.Claimable() {
		return nil, false, nil
	}

	job.Status = types.JobStatusRunning
	job.Evidence = ev
	job.ErrorCode = nil
	job.ErrorMessage = nil
	job.StartedAt = &now
	job.UpdatedAt = now
	m.ledgerWrites++
	c, err := cloneJob(job)
	return c, err == nil, err
}

// UpsertJob implements the repository contract
func (m *MemoryStore) UpsertJob(_ context.Context, job *types.PipelineJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := jobKey{job.DocHash, job.Step}
	existing, ok := m.jobs[key]
	if ok && existing.Status == types.JobStatusCompleted {
		return ErrJobCompleted
	}

	stored, err := cloneJob(job)
	if err != nil {
		return err
	}
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.CreatedAt = now
	if ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		if stored.StartedAt == nil {
			stored.StartedAt = existing.StartedAt
		}
	}
	stored.UpdatedAt = now
	m.jobs[key] = stored
	m.ledgerWrites++
	job.ID = stored.ID
	return nil
}

// GetTender implements the repository contract
func (m *MemoryStore) GetTender(_ context.Context, id uuid.UUID) (*types.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenders[id]
	if !ok {
		return nil, nil
	}
	return cloneTender(t), nil
}

// GetTenderByDocHash implements the repository contract
func (m *MemoryStore) GetTenderByDocHash(_ context.Context, docHash string) (*types.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenders {
		if t.DocHash == docHash {
			return cloneTender(t), nil
		}
	}
	return nil, nil
}

// UpsertTender implements the repository contract. Tenders are unique per
// document hash; an existing tender keeps its ID.
func (m *MemoryStore) UpsertTender(_ context.Context, t *types.Tender) (*types.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stored := cloneTender(t)
	stored.CreatedAt = now
	for _, existing := range m.tenders {
		if existing.DocHash == t.DocHash {
			stored.ID = existing.ID
			stored.CreatedAt = existing.CreatedAt
			break
		}
	}
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.UpdatedAt = now
	m.tenders[stored.ID] = stored
	return cloneTender(stored), nil
}

// UpdateTenderStatus implements the repository contract
func (m *MemoryStore) UpdateTenderStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenders[id]; ok {
		t.Status = status
		t.UpdatedAt = m.now()
	}
	return nil
}

// CreateChecklistItems implements the repository contract
func (m *MemoryStore) CreateChecklistItems(_ context.Context, docHash string, items []types.ChecklistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stored := make([]types.ChecklistItem, len(items))
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
		items[i].DocHash = docHash
		stored[i] = items[i]
	}
	m.checklists[docHash] = stored
	return nil
}

// ListChecklistItems implements the repository contract
func (m *MemoryStore) ListChecklistItems(_ context.Context, docHash string) ([]types.ChecklistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ChecklistItem(nil), m.checklists[docHash]...), nil
}

// CreateSimulation implements the repository contract
func (m *MemoryStore) CreateSimulation(_ context.Context, rec *types.SimulationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.simulations[rec.DocHash] = append(m.simulations[rec.DocHash], *rec)
	return nil
}

// GetLatestSimulation implements the repository contract
func (m *MemoryStore) GetLatestSimulation(_ context.Context, docHash string) (*types.SimulationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sims := m.simulations[docHash]
	if len(sims) == 0 {
		return nil, nil
	}
	latest := sims[len(sims)-1]
	return &latest, nil
}

// CreateOffer implements the repository contract
func (m *MemoryStore) CreateOffer(_ context.Context, offer *types.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = m.now()
	}
	m.offers[offer.DocHash] = append(m.offers[offer.DocHash], *offer)
	return nil
}

// GetLatestOffer implements the repository contract
func (m *MemoryStore) GetLatestOffer(_ context.Context, docHash string) (*types.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offers := m.offers[docHash]
	if len(offers) == 0 {
		return nil, nil
	}
	latest := offers[len(offers)-1]
	return &latest, nil
}

func cloneJob(j *types.PipelineJob) (*types.PipelineJob, error) {
	c := *j
	var err error
	if c.Metadata, err = cloneMap(j.Metadata); err != nil {
		return nil, fmt.Errorf("failed to encode job metadata: %w", err)
	}
	if c.Evidence, err = cloneMap(j.Evidence); err != nil {
		return nil, fmt.Errorf("failed to encode job evidence: %w", err)
	}
	if j.ErrorCode != nil {
		v := *j.ErrorCode
		c.ErrorCode = &v
	}
	if j.ErrorMessage != nil {
		v := *j.ErrorMessage
		c.ErrorMessage = &v
	}
	return &c, nil
}

func cloneTender(t *types.Tender) *types.Tender {
	c := *t
	c.MealTypes = append([]string(nil), t.MealTypes...)
	return &c
}

// cloneMap deep-copies a JSON-shaped map the same way a JSONB round trip would
func cloneMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
