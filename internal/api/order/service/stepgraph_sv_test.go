package orderService

import (
	"QahwaBot/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepGraphForwardFlow(t *testing.T) {
	g := NewStepGraph()

	assert.True(t, g.IsAllowed(entity.StepLanguageSelect, entity.StepCategorySelect))
	assert.True(t, g.IsAllowed(entity.StepCategorySelect, entity.StepSubcategorySelect))
	assert.True(t, g.IsAllowed(entity.StepSubcategorySelect, entity.StepItemSelect))
	assert.True(t, g.IsAllowed(entity.StepItemSelect, entity.StepQuantitySelect))
	assert.True(t, g.IsAllowed(entity.StepQuantitySelect, entity.StepMoreItems))
	assert.True(t, g.IsAllowed(entity.StepMoreItems, entity.StepServiceSelect))
	assert.True(t, g.IsAllowed(entity.StepServiceSelect, entity.StepLocationSelect))
	assert.True(t, g.IsAllowed(entity.StepLocationSelect, entity.StepConfirmation))
	assert.True(t, g.IsAllowed(entity.StepConfirmation, entity.StepCompleted))
	assert.True(t, g.IsAllowed(entity.StepConfirmation, entity.StepCancelled))
}

func TestStepGraphQuickOrderJumps(t *testing.T) {
	g := NewStepGraph()

	// a compound utterance may leap from browsing straight into checkout
	assert.True(t, g.IsAllowed(entity.StepCategorySelect, entity.StepMoreItems))
	assert.True(t, g.IsAllowed(entity.StepCategorySelect, entity.StepLocationSelect))
	assert.True(t, g.IsAllowed(entity.StepItemSelect, entity.StepMoreItems))
}

func TestStepGraphIllegalTransitions(t *testing.T) {
	g := NewStepGraph()

	assert.False(t, g.IsAllowed(entity.StepLanguageSelect, entity.StepConfirmation))
	assert.False(t, g.IsAllowed(entity.StepQuantitySelect, entity.StepConfirmation))
	assert.False(t, g.IsAllowed(entity.StepCompleted, entity.StepCategorySelect))
	assert.False(t, g.IsAllowed(entity.StepServiceSelect, entity.StepMoreItems))
}

func TestStepGraphSelfTransition(t *testing.T) {
	g := NewStepGraph()
	assert.True(t, g.IsAllowed(entity.StepQuantitySelect, entity.StepQuantitySelect))
}

func TestStepGraphPreviousStep(t *testing.T) {
	g := NewStepGraph()

	assert.Equal(t, entity.StepItemSelect, g.PreviousStep(entity.StepQuantitySelect))
	assert.Equal(t, entity.StepServiceSelect, g.PreviousStep(entity.StepLocationSelect))
	assert.Equal(t, entity.Step(""), g.PreviousStep(entity.StepLanguageSelect))
}

func TestStepGraphClearOnBack(t *testing.T) {
	g := NewStepGraph()

	sess := &entity.Session{
		MainCategoryID: "cat-1",
		SubCategoryID:  "sub-1",
		SelectedItemID: "itm-1",
	}

	g.ClearOnBack(sess, entity.StepQuantitySelect)
	assert.Empty(t, sess.SelectedItemID)
	assert.Equal(t, "sub-1", sess.SubCategoryID)

	g.ClearOnBack(sess, entity.StepSubcategorySelect)
	assert.Empty(t, sess.SubCategoryID)
	assert.Equal(t, "cat-1", sess.MainCategoryID)

	g.ClearOnBack(sess, entity.StepCategorySelect)
	assert.Empty(t, sess.MainCategoryID)
}
