package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// CreateSimulation stores a simulation and its optional ADT explanation
func (db *DB) CreateSimulation(ctx context.Context, rec *types.SimulationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	outputJSON, err := json.Marshal(rec.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal simulation output: %w", err)
	}
	var explanationJSON []byte
	if rec.Explanation != nil {
		if explanationJSON, err = json.Marshal(rec.Explanation); err != nil {
			return fmt.Errorf("failed to marshal explanation: %w", err)
		}
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO simulations (id, tender_id, doc_hash, project_total, recommended_price, risk_level,
		                          output, explanation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.TenderID, rec.DocHash, rec.Output.ProjectTotal, rec.Output.RecommendedPrice,
		string(rec.Output.KIKAnalysis.RiskLevel), outputJSON, explanationJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	return nil
}

// GetLatestSimulation returns the newest simulation of a document
func (db *DB) GetLatestSimulation(ctx context.Context, docHash string) (*types.SimulationRecord, error) {
	var rec types.SimulationRecord
	var outputJSON, explanationJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, tender_id, doc_hash, output, explanation, created_at
		 FROM simulations WHERE doc_hash = $1
		 ORDER BY created_at DESC LIMIT 1`,
		docHash,
	).Scan(&rec.ID, &rec.TenderID, &rec.DocHash, &outputJSON, &explanationJSON, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest simulation: %w", err)
	}

	if err := json.Unmarshal(outputJSON, &rec.Output); err != nil {
		return nil, fmt.Errorf("failed to decode simulation output: %w", err)
	}
	if explanationJSON != nil {
		rec.Explanation = &types.ADTExplanation{}
		if err := json.Unmarshal(explanationJSON, rec.Explanation); err != nil {
			return nil, fmt.Errorf("failed to decode explanation: %w", err)
		}
	}
	return &rec, nil
}

// CreateOffer stores a drafted offer
func (db *DB) CreateOffer(ctx context.Context, offer *types.Offer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now().UTC()
	}
	linesJSON, err := json.Marshal(offer.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal offer lines: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO offers (id, tender_id, doc_hash, simulation_id, offer_price, project_total,
		                     profit_margin, risk_level, explanation_required, valid_until, lines, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		offer.ID, offer.TenderID, offer.DocHash, offer.SimulationID, offer.OfferPrice, offer.ProjectTotal,
		offer.ProfitMargin, string(offer.RiskLevel), offer.ExplanationRequired, offer.ValidUntil,
		linesJSON, offer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

// GetLatestOffer returns the newest offer drafted for a document
func (db *DB) GetLatestOffer(ctx context.Context, docHash string) (*types.Offer, error) {
	var o types.Offer
	var linesJSON []byte
	var risk string

	err := db.pool.QueryRow(ctx,
		`SELECT id, tender_id, doc_hash, simulation_id, offer_price, project_total, profit_margin,
		        risk_level, explanation_required, valid_until, lines, created_at
		 FROM offers WHERE doc_hash = $1
		 ORDER BY created_at DESC LIMIT 1`,
		docHash,
	).Scan(&o.ID, &o.TenderID, &o.DocHash, &o.SimulationID, &o.OfferPrice, &o.ProjectTotal,
		&o.ProfitMargin, &risk, &o.ExplanationRequired, &o.ValidUntil, &linesJSON, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest offer: %w", err)
	}
	o.RiskLevel = types.RiskLevel(risk)
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode offer lines: %w", err)
	}
	return &o, nil
}
