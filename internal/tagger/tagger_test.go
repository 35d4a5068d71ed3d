package tagger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mira-labs/mira/internal/core/domain"
)

func newDefaultTagger(t *testing.T) *Tagger {
	t.Helper()
	tg, err := New(DefaultDictionary())
	require.NoError(t, err)
	return tg
}

func TestTag_EquipmentKeyword(t *testing.T) {
	tg := newDefaultTagger(t)

	chunk := domain.Chunk{DocID: "d1", Text: "The longwall face advanced ten metres overnight."}
	tagged := tg.Tag(chunk, "nsw", "guidance")

	assert.Contains(t, tagged.Tags[domain.TagEquipment], "longwall")
	assert.Equal(t, "nsw", tagged.Region)
	assert.Equal(t, "guidance", tagged.DocType)
}

func TestTag_PhraseMatch(t *testing.T) {
	tg := newDefaultTagger(t)

	chunk := domain.Chunk{DocID: "d1", Text: "All workers must know the evacuation procedure for their level."}
	tagged := tg.Tag(chunk, "qld", "sop")

	assert.Contains(t, tagged.Tags[domain.TagProcedure], "evacuation procedure")
}

func TestTag_PhraseAcrossWhitespace(t *testing.T) {
	tg := newDefaultTagger(t)

	chunk := domain.Chunk{DocID: "d1", Text: "Refer to the evacuation\n procedure posted at the portal."}
	tagged := tg.Tag(chunk, "", "")

	assert.Contains(t, tagged.Tags[domain.TagProcedure], "evacuation procedure")
}

func TestTag_WordBoundary(t *testing.T) {
	tg := newDefaultTagger(t)

	t.Run("no partial-word match", func(t *testing.T) {
		chunk := domain.Chunk{DocID: "d1", Text: "Store gasoline away from the workshop."}
		tagged := tg.Tag(chunk, "", "")
		assert.NotContains(t, tagged.Tags[domain.TagHazard], "gas")
	})

	t.Run("whole word matches", func(t *testing.T) {
		chunk := domain.Chunk{DocID: "d1", Text: "Test for gas before entry."}
		tagged := tg.Tag(chunk, "", "")
		assert.Contains(t, tagged.Tags[domain.TagHazard], "gas")
	})
}

func TestTag_CaseInsensitive(t *testing.T) {
	tg := newDefaultTagger(t)

	chunk := domain.Chunk{DocID: "d1", Text: "METHANE levels exceeded 2.5% at the tailgate."}
	tagged := tg.Tag(chunk, "", "")

	assert.Contains(t, tagged.Tags[domain.TagHazard], "methane")
}

func TestTag_EmptyCategoriesPresent(t *testing.T) {
	tg := newDefaultTagger(t)

	chunk := domain.Chunk{DocID: "d1", Text: "Nothing of note happened today."}
	tagged := tg.Tag(chunk, "", "")

	for _, category := range domain.TagCategories() {
		set, ok := tagged.Tags[category]
		require.True(t, ok, "category %s must be present", category)
		assert.Empty(t, set)
	}
}

func TestTag_Deterministic(t *testing.T) {
	tg := newDefaultTagger(t)

	chunk := domain.Chunk{
		DocID: "d1",
		Text:  "Longwall mining releases methane; follow the evacuation procedure and the code of practice for coal mines.",
	}

	first := tg.Tag(chunk, "wa", "legislation")
	second := tg.Tag(chunk, "wa", "legislation")
	assert.Equal(t, first, second)

	assert.Contains(t, first.Tags[domain.TagEquipment], "longwall")
	assert.Contains(t, first.Tags[domain.TagMiningMethod], "longwall mining")
	assert.Contains(t, first.Tags[domain.TagHazard], "methane")
	assert.Contains(t, first.Tags[domain.TagRegulation], "code of practice")
	assert.Contains(t, first.Tags[domain.TagMineral], "coal")
}

func TestNew_CustomDictionary(t *testing.T) {
	dict := Dictionary{
		domain.TagHazard: {"grisou"},
	}
	tg, err := New(dict)
	require.NoError(t, err)

	chunk := domain.Chunk{DocID: "d1", Text: "Le grisou est un danger majeur."}
	tagged := tg.Tag(chunk, "", "")

	assert.Equal(t, []string{"grisou"}, tagged.Tags[domain.TagHazard])
	// Categories absent from the dictionary are still checked.
	assert.Empty(t, tagged.Tags[domain.TagEquipment])
}
