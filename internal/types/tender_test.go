package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentMetadata(t *testing.T) {
	data := map[string]any{
		"title":          "Okul yemek hizmeti",
		"personCount":    float64(750),
		"estimatedValue": 2500000.5,
		"offerPrice":     2100000,
		"mealTypes":      []any{"öğle"},
		"serviceDays":    180,
		"portionSizes": []any{
			map[string]any{"category": "Çorba", "grams": 250, "wastePercentage": 4},
		},
		"unknownField": "ignored",
	}

	meta, err := ParseDocumentMetadata(data)
	require.NoError(t, err)

	assert.Equal(t, "Okul yemek hizmeti", meta.Title)
	assert.Equal(t, 750, meta.PersonCount)
	assert.Equal(t, 2500000.5, meta.EstimatedValue)
	assert.Equal(t, 2100000.0, meta.OfferPrice)
	assert.Equal(t, 180, meta.ServiceDays)
	require.Len(t, meta.PortionSizes, 1)
	assert.Equal(t, 250.0, meta.PortionSizes[0].Grams)
	require.NotNil(t, meta.PortionSizes[0].WastePercentage)
	assert.Equal(t, 4.0, *meta.PortionSizes[0].WastePercentage)
}

func TestParseDocumentMetadata_Empty(t *testing.T) {
	meta, err := ParseDocumentMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, &DocumentMetadata{}, meta)
}

func TestParseDocumentMetadata_WrongType(t *testing.T) {
	_, err := ParseDocumentMetadata(map[string]any{"personCount": "many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode analysis data")
}

func TestMergeFacts(t *testing.T) {
	tender := &Tender{
		ID:             uuid.New(),
		Title:          "Stored title",
		Location:       "İzmir",
		PersonCount:    400,
		MealsPerDay:    2,
		DurationDays:   365,
		EstimatedValue: 9000000,
		MealTypes:      []string{"öğle", "akşam"},
	}

	t.Run("analysis wins when set", func(t *testing.T) {
		meta := &DocumentMetadata{
			Title:       "New title",
			PersonCount: 500,
			MealTypes:   []string{"kahvaltı", "öğle", "akşam"},
			OfferPrice:  8000000,
			Confidence:  0.7,
		}
		f := MergeFacts(meta, tender)

		assert.Equal(t, "New title", f.Title)
		assert.Equal(t, "İzmir", f.Location)
		assert.Equal(t, 500, f.PersonCount)
		// meals per day falls back to the number of meal types
		assert.Equal(t, 3, f.MealsPerDay)
		assert.Equal(t, 365, f.DurationDays)
		assert.Equal(t, 9000000.0, f.EstimatedValue)
		assert.Equal(t, 8000000.0, f.OfferPrice)
		assert.Equal(t, 0.7, f.Confidence)
	})

	t.Run("blank strings keep stored values", func(t *testing.T) {
		f := MergeFacts(&DocumentMetadata{Title: "   "}, tender)
		assert.Equal(t, "Stored title", f.Title)
		assert.Equal(t, 2, f.MealsPerDay)
	})

	t.Run("no tender", func(t *testing.T) {
		f := MergeFacts(&DocumentMetadata{PersonCount: 10, ServiceDays: 30}, nil)
		assert.Equal(t, 10, f.PersonCount)
		assert.Equal(t, 30, f.DurationDays)
	})

	t.Run("no metadata", func(t *testing.T) {
		f := MergeFacts(nil, tender)
		assert.Equal(t, 400, f.PersonCount)
		assert.Zero(t, f.OfferPrice)
	})
}
