package orderService

import (
	"QahwaBot/internal/entity"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveWith(t *testing.T, classifier *fakeClassifier, step entity.Step, text string) *entity.Intent {
	t.Helper()
	resolver := NewIntentResolver(testLogger(), classifier, NewStepGraph())
	if classifier == nil {
		resolver = NewIntentResolver(testLogger(), nil, NewStepGraph())
	}
	return resolver.Resolve(context.Background(), resolveInput{
		Text: text,
		Session: &entity.Session{
			PhoneNumber: "966500000001",
			CurrentStep: step,
			Language:    entity.LanguageEnglish,
		},
		Menu: testMenu(),
	})
}

func TestResolveModelHighConfidence(t *testing.T) {
	classifier := &fakeClassifier{out: `{"action":"item_select","confidence":"high","fields":{"item":"itm-latte"}}`}
	intent := resolveWith(t, classifier, entity.StepItemSelect, "one latte please")

	assert.Equal(t, entity.ActionItemSelect, intent.Action)
	assert.Equal(t, entity.ConfidenceHigh, intent.Confidence)
	assert.Equal(t, "model", intent.Strategy)
	assert.Equal(t, "itm-latte", intent.Field(entity.FieldItem))
	assert.Equal(t, 1, classifier.calls)
}

func TestResolveModelOutputInMarkdownFences(t *testing.T) {
	classifier := &fakeClassifier{out: "```json\n{\"action\":\"quantity_select\",\"confidence\":\"high\",\"fields\":{\"quantity\":3}}\n```"}
	intent := resolveWith(t, classifier, entity.StepQuantitySelect, "three")

	assert.Equal(t, entity.ActionQuantitySelect, intent.Action)
	assert.Equal(t, "3", intent.Field(entity.FieldQuantity))
}

func TestResolveClassifierDownFallsBack(t *testing.T) {
	classifier := &fakeClassifier{err: errClassifierDown}
	intent := resolveWith(t, classifier, entity.StepQuantitySelect, "2")

	assert.Equal(t, entity.ActionQuantitySelect, intent.Action)
	assert.Equal(t, "2", intent.Field(entity.FieldQuantity))
	assert.NotEqual(t, "model", intent.Strategy)
}

func TestResolveGarbageOutputFallsBack(t *testing.T) {
	classifier := &fakeClassifier{out: "sorry, I cannot help with that"}
	intent := resolveWith(t, classifier, entity.StepMoreItems, "no thanks")

	assert.Equal(t, entity.ActionNo, intent.Action)
}

func TestResolveLowConfidenceUpgradedByExtractor(t *testing.T) {
	classifier := &fakeClassifier{out: `{"action":"clarify","confidence":"low"}`}
	intent := resolveWith(t, classifier, entity.StepQuantitySelect, "خمسة")

	assert.Equal(t, entity.ActionQuantitySelect, intent.Action)
	assert.Equal(t, "5", intent.Field(entity.FieldQuantity))
	assert.Equal(t, "hybrid", intent.Strategy)
}

func TestResolveServiceStrictDigit(t *testing.T) {
	intent := resolveWith(t, nil, entity.StepServiceSelect, "1")
	require.Equal(t, entity.ActionServiceSelect, intent.Action)
	assert.Equal(t, string(entity.ServiceDineIn), intent.Field(entity.FieldService))

	intent = resolveWith(t, nil, entity.StepServiceSelect, "2")
	require.Equal(t, entity.ActionServiceSelect, intent.Action)
	assert.Equal(t, string(entity.ServiceDelivery), intent.Field(entity.FieldService))
}

func TestResolveServiceRejectsStrayDigits(t *testing.T) {
	// "12" is not a service choice even when the model guesses one
	classifier := &fakeClassifier{out: `{"action":"service_select","confidence":"low","fields":{"service":"dine_in"}}`}
	intent := resolveWith(t, classifier, entity.StepServiceSelect, "12")

	assert.Equal(t, entity.ActionClarify, intent.Action)
}

func TestResolveServiceKeyword(t *testing.T) {
	intent := resolveWith(t, nil, entity.StepServiceSelect, "توصيل")
	require.Equal(t, entity.ActionServiceSelect, intent.Action)
	assert.Equal(t, string(entity.ServiceDelivery), intent.Field(entity.FieldService))
}

func TestResolveQuantityOutOfRangeRejected(t *testing.T) {
	intent := resolveWith(t, nil, entity.StepQuantitySelect, "55")
	assert.Equal(t, entity.ActionClarify, intent.Action)

	intent = resolveWith(t, nil, entity.StepQuantitySelect, "0")
	assert.Equal(t, entity.ActionClarify, intent.Action)
}

func TestResolveBackCommandSkipsModel(t *testing.T) {
	classifier := &fakeClassifier{out: `{"action":"item_select","confidence":"high"}`}
	intent := resolveWith(t, classifier, entity.StepQuantitySelect, "رجوع")

	assert.Equal(t, entity.ActionBack, intent.Action)
	assert.Equal(t, "command", intent.Strategy)
	assert.Zero(t, classifier.calls)
}

func TestResolveMultiItemUtterance(t *testing.T) {
	classifier := &fakeClassifier{out: `{"action":"clarify","confidence":"low"}`}
	intent := resolveWith(t, classifier, entity.StepCategorySelect, "2 lattes and 1 espresso delivery")

	require.Equal(t, entity.ActionMultiItemSelect, intent.Action)
	require.Len(t, intent.Items, 2)
	assert.Equal(t, "itm-latte", intent.Items[0].ItemID)
	assert.Equal(t, 2, intent.Items[0].Quantity)
	assert.Equal(t, "itm-espresso", intent.Items[1].ItemID)
	assert.Equal(t, string(entity.ServiceDelivery), intent.Field(entity.FieldService))
}

func TestResolveModelMultiItemPayload(t *testing.T) {
	classifier := &fakeClassifier{out: `{"action":"item_select","confidence":"high","items":[{"item_name":"latte","quantity":2},{"item_name":"espresso","quantity":1}]}`}
	intent := resolveWith(t, classifier, entity.StepCategorySelect, "2 lattes and 1 espresso")

	assert.Equal(t, entity.ActionMultiItemSelect, intent.Action)
	assert.Len(t, intent.Items, 2)
}

func TestResolveItemNameAtCategoryStep(t *testing.T) {
	intent := resolveWith(t, nil, entity.StepCategorySelect, "cappuccino")

	require.Equal(t, entity.ActionItemSelect, intent.Action)
	assert.Equal(t, "itm-cappuccino", intent.Field(entity.FieldItem))
	assert.Empty(t, intent.Field(entity.FieldQuantity))
}

func TestResolveLanguageChoice(t *testing.T) {
	intent := resolveWith(t, nil, entity.StepLanguageSelect, "2")
	require.Equal(t, entity.ActionLanguageSelect, intent.Action)
	assert.Equal(t, string(entity.LanguageEnglish), intent.Field(entity.FieldLanguage))

	intent = resolveWith(t, nil, entity.StepLanguageSelect, "العربية")
	require.Equal(t, entity.ActionLanguageSelect, intent.Action)
	assert.Equal(t, string(entity.LanguageArabic), intent.Field(entity.FieldLanguage))
}

func TestResolveNeverReturnsNil(t *testing.T) {
	intent := resolveWith(t, nil, entity.StepConfirmation, "zzzzz qwerty")
	require.NotNil(t, intent)
	assert.Equal(t, entity.ActionClarify, intent.Action)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSONObject(`noise {"a":{"b":2}} trailing`))
	assert.Equal(t, "", extractJSONObject("no json here"))
}
