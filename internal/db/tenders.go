package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

const tenderColumns = `id, doc_hash, user_id, title, institution, location, person_count, meals_per_day,
	duration_days, service_days_per_week, estimated_value, meal_types, status, created_at, updated_at`

func scanTender(row pgx.Row) (*types.Tender, error) {
	var t types.Tender
	err := row.Scan(&t.ID, &t.DocHash, &t.UserID, &t.Title, &t.Institution, &t.Location,
		&t.PersonCount, &t.MealsPerDay, &t.DurationDays, &t.ServiceDaysPerWeek,
		&t.EstimatedValue, &t.MealTypes, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTender retrieves a tender by ID; a missing tender is (nil, nil)
func (db *DB) GetTender(ctx context.Context, id uuid.UUID) (*types.Tender, error) {
	t, err := scanTender(db.pool.QueryRow(ctx,
		`SELECT `+tenderColumns+` FROM tenders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tender: %w", err)
	}
	return t, nil
}

// GetTenderByDocHash retrieves the tender created from a document
func (db *DB) GetTenderByDocHash(ctx context.Context, docHash string) (*types.Tender, error) {
	t, err := scanTender(db.pool.QueryRow(ctx,
		`SELECT `+tenderColumns+` FROM tenders WHERE doc_hash = $1`, docHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tender by doc hash: %w", err)
	}
	return t, nil
}

// UpsertTender creates the tender for a document or updates it in place.
// The stored row, including its original ID, is returned.
func (db *DB) UpsertTender(ctx context.Context, t *types.Tender) (*types.Tender, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	mealTypes := t.MealTypes
	if mealTypes == nil {
		mealTypes = []string{}
	}

	stored, err := scanTender(db.pool.QueryRow(ctx,
		`INSERT INTO tenders (id, doc_hash, user_id, title, institution, location, person_count,
		                      meals_per_day, duration_days, service_days_per_week, estimated_value,
		                      meal_types, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (doc_hash) DO UPDATE SET
		     user_id = EXCLUDED.user_id,
		     title = EXCLUDED.title,
		     institution = EXCLUDED.institution,
		     location = EXCLUDED.location,
		     person_count = EXCLUDED.person_count,
		     meals_per_day = EXCLUDED.meals_per_day,
		     duration_days = EXCLUDED.duration_days,
		     service_days_per_week = EXCLUDED.service_days_per_week,
		     estimated_value = EXCLUDED.estimated_value,
		     meal_types = EXCLUDED.meal_types,
		     status = EXCLUDED.status,
		     updated_at = NOW()
		 RETURNING `+tenderColumns,
		t.ID, t.DocHash, t.UserID, t.Title, t.Institution, t.Location, t.PersonCount,
		t.MealsPerDay, t.DurationDays, t.ServiceDaysPerWeek, t.EstimatedValue, mealTypes, t.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tender: %w", err)
	}
	return stored, nil
}

// UpdateTenderStatus sets the lifecycle status of a tender
func (db *DB) UpdateTenderStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE tenders SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tender status: %w", err)
	}
	return nil
}

// CreateChecklistItems replaces the checklist of a document in one transaction
func (db *DB) CreateChecklistItems(ctx context.Context, docHash string, items []types.ChecklistItem) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM checklist_items WHERE doc_hash = $1`, docHash); err != nil {
		return fmt.Errorf("failed to clear checklist: %w", err)
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(items))
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
		it := items[i]
		rows = append(rows, []any{it.ID, it.TenderID, docHash, it.Title, it.Category, it.Required, it.Source, it.CreatedAt})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"checklist_items"},
		[]string{"id", "tender_id", "doc_hash", "title", "category", "required", "source", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert checklist items: %w", err)
	}

	return tx.Commit(ctx)
}

// ListChecklistItems returns the checklist of a document
func (db *DB) ListChecklistItems(ctx context.Context, docHash string) ([]types.ChecklistItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, tender_id, doc_hash, title, category, required, source, created_at
		 FROM checklist_items WHERE doc_hash = $1 ORDER BY created_at, title`,
		docHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	defer rows.Close()

	var items []types.ChecklistItem
	for rows.Next() {
		var it types.ChecklistItem
		if err := rows.Scan(&it.ID, &it.TenderID, &it.DocHash, &it.Title, &it.Category,
			&it.Required, &it.Source, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
