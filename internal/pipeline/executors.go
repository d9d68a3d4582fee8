package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/compliance"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/guards"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/money"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/sli"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// OfferValidity is how long a drafted offer stays valid
const OfferValidity = 60 * 24 * time.Hour

// facts reads the merged view of the job's analysis data and the stored tender
func (o *Orchestrator) facts(ctx context.Context, req StepRequest) (types.Facts, *types.Tender, error) {
	gc := guards.NewContext(req.Step, req.DocHash, req.Job, o.repo)
	tender, err := gc.Tender(ctx)
	if err != nil {
		return types.Facts{}, nil, eris.Wrap(err, "pipeline: load tender")
	}
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.Facts{}, nil, eris.Wrap(err, "pipeline: load facts")
	}
	return facts, tender, nil
}

// executeAnalysis records that analysis finished. It has no side effects.
func (o *Orchestrator) executeAnalysis(_ context.Context, req StepRequest) (map[string]any, error) {
	meta, err := types.ParseDocumentMetadata(req.Job.AnalysisData)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"fields":        len(req.Job.AnalysisData),
		"person_count":  meta.PersonCount,
		"portion_count": len(meta.PortionSizes),
		"confidence":    meta.Confidence,
	}, nil
}

// executeTenderUpsert creates or refreshes the tender record for the document
func (o *Orchestrator) executeTenderUpsert(ctx context.Context, req StepRequest) (map[string]any, error) {
	facts, existing, err := o.facts(ctx, req)
	if err != nil {
		return nil, err
	}

	t := &types.Tender{
		DocHash:            req.DocHash,
		UserID:             req.Job.UserID,
		Title:              facts.Title,
		Institution:        facts.Institution,
		Location:           facts.Location,
		PersonCount:        facts.PersonCount,
		MealsPerDay:        facts.MealsPerDay,
		DurationDays:       facts.DurationDays,
		ServiceDaysPerWeek: facts.ServiceDaysPerWeek,
		EstimatedValue:     facts.EstimatedValue,
		MealTypes:          facts.MealTypes,
		Status:             types.TenderStatusAnalyzed,
	}
	if existing != nil {
		t.ID = existing.ID
		if t.UserID == "" {
			t.UserID = existing.UserID
		}
	}
	if t.Title == "" {
		t.Title = fmt.Sprintf("İhale %s", req.DocHash[:8])
	}

	stored, err := o.repo.UpsertTender(ctx, t)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: upsert tender")
	}
	return map[string]any{
		"tender_id":    stored.ID.String(),
		"created":      existing == nil,
		"person_count": stored.PersonCount,
		"status":       stored.Status,
	}, nil
}

// executeChecklist generates the bid document checklist of the tender
func (o *Orchestrator) executeChecklist(ctx context.Context, req StepRequest) (map[string]any, error) {
	facts, tender, err := o.facts(ctx, req)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, fmt.Errorf("tender for document %s not found", req.DocHash)
	}

	items := BuildChecklist(tender.ID, facts)
	if err := o.repo.CreateChecklistItems(ctx, req.DocHash, items); err != nil {
		return nil, eris.Wrap(err, "pipeline: create checklist")
	}

	required := 0
	for _, it := range items {
		if it.Required {
			required++
		}
	}
	return map[string]any{
		"tender_id": tender.ID.String(),
		"items":     len(items),
		"required":  required,
	}, nil
}

// executeSimulation prices the tender, runs the compliance analysis and
// stores the simulation with its justification when one is required.
func (o *Orchestrator) executeSimulation(ctx context.Context, req StepRequest) (map[string]any, error) {
	facts, tender, err := o.facts(ctx, req)
	if err != nil {
		return nil, err
	}

	input, err := o.simulationInput(ctx, req, facts)
	if err != nil {
		return nil, err
	}

	out, err := o.engine.Simulate(input)
	if err != nil {
		return nil, err
	}

	rec := &types.SimulationRecord{DocHash: req.DocHash, Output: *out}
	if tender != nil {
		rec.TenderID = tender.ID
	}
	bidPrice, verdict, err := o.bidVerdict(out, facts.OfferPrice)
	if err != nil {
		return nil, err
	}
	if compliance.RequiresFullJustification(verdict) {
		explanation, err := o.engine.Analyzer().GenerateExplanationForPrice(out, bidPrice)
		if err != nil {
			return nil, err
		}
		rec.Explanation = explanation
	}

	if err := o.repo.CreateSimulation(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "pipeline: store simulation")
	}
	if tender != nil {
		if err := o.repo.UpdateTenderStatus(ctx, tender.ID, types.TenderStatusSimulated); err != nil {
			o.logger.Warn("failed to update tender status", zap.String("tender_id", tender.ID.String()), zap.Error(err))
		}
	}

	if facts.EstimatedValue > 0 {
		ratio := money.Round(out.ProjectTotal/facts.EstimatedValue, 4)
		sli.Emit(ctx, o.recorder, o.logger, sli.CostAccuracyRatio, ratio,
			map[string]string{"step": string(req.Step), "risk_level": string(out.KIKAnalysis.RiskLevel)},
			map[string]any{"project_total": out.ProjectTotal, "estimated_value": facts.EstimatedValue, "doc_hash": req.DocHash},
		)
	}

	return map[string]any{
		"simulation_id":        rec.ID.String(),
		"project_total":        out.ProjectTotal,
		"recommended_price":    out.RecommendedPrice,
		"profit_margin":        out.ProfitMargin,
		"confidence":           out.Confidence,
		"risk_tier":            out.Risk.Tier,
		"threshold":            out.KIKAnalysis.Threshold,
		"bid_price":            bidPrice,
		"risk_level":           verdict.RiskLevel,
		"is_adt":               verdict.IsADT,
		"explanation_required": verdict.ExplanationRequired,
		"explanation_attached": rec.Explanation != nil,
		"audit_fingerprint":    out.KIKAnalysis.AuditTrail.Fingerprint,
	}, nil
}

// bidVerdict returns the price that will be bid and its compliance verdict.
// Without an intended offer price the recommended price is bid.
func (o *Orchestrator) bidVerdict(out *types.SimulationOutput, offerPrice float64) (float64, types.KIKAnalysis, error) {
	verdict := out.KIKAnalysis
	if offerPrice <= 0 {
		return out.RecommendedPrice, verdict, nil
	}
	status, err := o.engine.Analyzer().CheckStatus(offerPrice, verdict.Threshold)
	if err != nil {
		return 0, verdict, err
	}
	verdict.IsADT = status.IsADT
	verdict.ExplanationRequired = status.ExplanationRequired
	verdict.RiskLevel = status.RiskLevel
	verdict.DeviationPercentage = status.DeviationPercentage
	return offerPrice, verdict, nil
}

// simulationInput builds the engine input from facts and market prices.
// Categories without a known price make the step wait for input.
func (o *Orchestrator) simulationInput(ctx context.Context, req StepRequest, facts types.Facts) (types.SimulationInput, error) {
	now := o.clock()
	input := types.SimulationInput{
		Persons:            facts.PersonCount,
		MealsPerDay:        facts.MealsPerDay,
		DurationDays:       facts.DurationDays,
		ServiceDaysPerWeek: facts.ServiceDaysPerWeek,
		Location:           facts.Location,
		AsOf:               &now,
	}

	portions := facts.PortionSizes
	if len(portions) == 0 {
		for _, d := range defaultPortions {
			portions = append(portions, types.PortionSize{Category: d.category, Grams: d.grams})
		}
	}

	confidence := facts.Confidence
	var missing []string
	for _, p := range portions {
		spec := types.PortionSpec{
			Category:         p.Category,
			GramPerPortion:   p.Grams,
			MarketPricePerKg: p.PricePerKg,
			WastePercentage:  p.WastePercentage,
			PriceSource:      "analysis",
		}
		if spec.MarketPricePerKg <= 0 {
			quote, ok, err := o.prices.Quote(ctx, p.Category, facts.Location)
			if err != nil {
				return input, eris.Wrapf(err, "pipeline: price quote for %s", p.Category)
			}
			if !ok {
				missing = append(missing, fmt.Sprintf("price:%s", p.Category))
				continue
			}
			spec.MarketPricePerKg = quote.PricePerKg
			spec.PriceSource = quote.Source
			if quote.Confidence > 0 && (confidence == 0 || quote.Confidence < confidence) {
				confidence = quote.Confidence
			}
		}
		input.PortionSpecs = append(input.PortionSpecs, spec)
	}
	if len(missing) > 0 {
		return input, &InputRequiredError{Step: string(req.Step), Missing: missing}
	}
	if confidence > 0 {
		input.Confidence = &confidence
	}
	return input, nil
}

// executeOffer drafts the bid from the latest simulation
func (o *Orchestrator) executeOffer(ctx context.Context, req StepRequest) (map[string]any, error) {
	gc := guards.NewContext(req.Step, req.DocHash, req.Job, o.repo)
	sim, err := gc.LatestSimulation(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load simulation")
	}
	if sim == nil {
		return nil, fmt.Errorf("no simulation stored for document %s", req.DocHash)
	}
	tender, err := gc.Tender(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load tender")
	}
	facts, err := gc.Facts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load facts")
	}

	out := sim.Output
	price, verdict, err := o.bidVerdict(&out, facts.OfferPrice)
	if err != nil {
		return nil, err
	}
	lines := []types.OfferLine{
		{Description: "Malzeme", Amount: out.Material.Total},
		{Description: "İşçilik", Amount: out.Labor.Total},
		{Description: "Genel giderler", Amount: out.Overhead.Total},
	}
	if out.Maintenance != nil {
		lines = append(lines, types.OfferLine{Description: "Bakım", Amount: out.Maintenance.Total})
	}
	lines = append(lines, types.OfferLine{Description: "Kâr", Amount: money.Sum(price, -out.ProjectTotal)})

	offer := &types.Offer{
		DocHash:             req.DocHash,
		TenderID:            sim.TenderID,
		SimulationID:        sim.ID,
		OfferPrice:          price,
		ProjectTotal:        out.ProjectTotal,
		ProfitMargin:        money.Sum(price, -out.ProjectTotal),
		RiskLevel:           verdict.RiskLevel,
		ExplanationRequired: verdict.ExplanationRequired,
		ValidUntil:          o.clock().Add(OfferValidity),
		Lines:               lines,
	}
	if tender != nil {
		offer.TenderID = tender.ID
	}
	if err := o.repo.CreateOffer(ctx, offer); err != nil {
		return nil, eris.Wrap(err, "pipeline: create offer")
	}
	if tender != nil {
		if err := o.repo.UpdateTenderStatus(ctx, tender.ID, types.TenderStatusOffered); err != nil {
			o.logger.Warn("failed to update tender status", zap.String("tender_id", tender.ID.String()), zap.Error(err))
		}
	}

	return map[string]any{
		"offer_id":             offer.ID.String(),
		"simulation_id":        sim.ID.String(),
		"offer_price":          offer.OfferPrice,
		"risk_level":           offer.RiskLevel,
		"explanation_required": offer.ExplanationRequired,
		"valid_until":          offer.ValidUntil.Format(time.RFC3339),
		"lines":                len(lines),
	}, nil
}
