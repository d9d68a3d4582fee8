package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Checklist categories
const (
	ChecklistDocuments = "documents"
	ChecklistMenu      = "menu"
	ChecklistTechnical = "technical"
)

var standardDocuments = []struct {
	title    string
	required bool
}{
	{"Teklif mektubu", true},
	{"Geçici teminat mektubu", true},
	{"Birim fiyat teklif cetveli", true},
	{"İş deneyim belgesi", true},
	{"İşletme kayıt belgesi", true},
	{"Vekaletname / imza sirküleri", true},
	{"TS EN ISO 22000 gıda güvenliği belgesi", false},
	{"Personel sağlık raporları", false},
}

// BuildChecklist generates the bid checklist: the standard catering
// documents, one menu item per meal type and one item per extracted
// technical requirement. Duplicate requirements are skipped.
func BuildChecklist(tenderID uuid.UUID, facts types.Facts) []types.ChecklistItem {
	items := make([]types.ChecklistItem, 0, len(standardDocuments)+len(facts.MealTypes)+len(facts.Requirements))
	for _, d := range standardDocuments {
		items = append(items, types.ChecklistItem{
			TenderID: tenderID,
			Title:    d.title,
			Category: ChecklistDocuments,
			Required: d.required,
			Source:   "standard",
		})
	}

	for _, meal := range facts.MealTypes {
		items = append(items, types.ChecklistItem{
			TenderID: tenderID,
			Title:    fmt.Sprintf("%s menüsü ve gramaj listesi", meal),
			Category: ChecklistMenu,
			Required: true,
			Source:   "meal_types",
		})
	}

	seen := make(map[string]bool, len(facts.Requirements))
	for _, req := range facts.Requirements {
		title := strings.TrimSpace(req)
		key := strings.ToLower(title)
		if title == "" || seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, types.ChecklistItem{
			TenderID: tenderID,
			Title:    title,
			Category: ChecklistTechnical,
			Required: true,
			Source:   "analysis",
		})
	}
	return items
}
