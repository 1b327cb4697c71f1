package orderService

import "QahwaBot/internal/entity"

// StepDefinition describes one stage of the ordering flow: where it may
// go, where "back" leads, and which session/order fields must be filled
// before leaving it.
type StepDefinition struct {
	Next     map[entity.Step]bool
	Previous entity.Step
	Required []string
}

// StepGraph is the immutable transition table for the ordering flow. All
// lookups are pure; nothing here mutates a session except ClearOnBack,
// which only clears fields of the session it is given.
type StepGraph struct {
	steps map[entity.Step]StepDefinition
}

func NewStepGraph() *StepGraph {
	return &StepGraph{steps: map[entity.Step]StepDefinition{
		entity.StepLanguageSelect: {
			Next:     stepSet(entity.StepCategorySelect),
			Required: []string{entity.FieldLanguage},
		},
		entity.StepCategorySelect: {
			// A compound "quick order" utterance may jump past the whole
			// selection chain, so every later step is reachable here.
			Next: stepSet(
				entity.StepSubcategorySelect,
				entity.StepItemSelect,
				entity.StepQuantitySelect,
				entity.StepMoreItems,
				entity.StepServiceSelect,
				entity.StepLocationSelect,
				entity.StepConfirmation,
			),
			Previous: entity.StepLanguageSelect,
			Required: []string{entity.FieldCategory},
		},
		entity.StepSubcategorySelect: {
			Next: stepSet(
				entity.StepItemSelect,
				entity.StepQuantitySelect,
				entity.StepMoreItems,
				entity.StepServiceSelect,
				entity.StepLocationSelect,
				entity.StepConfirmation,
			),
			Previous: entity.StepCategorySelect,
			Required: []string{entity.FieldSubcategory},
		},
		entity.StepItemSelect: {
			Next: stepSet(
				entity.StepQuantitySelect,
				entity.StepMoreItems,
				entity.StepServiceSelect,
				entity.StepLocationSelect,
				entity.StepConfirmation,
			),
			Previous: entity.StepSubcategorySelect,
			Required: []string{entity.FieldItem},
		},
		entity.StepQuantitySelect: {
			Next:     stepSet(entity.StepMoreItems),
			Previous: entity.StepItemSelect,
			Required: []string{entity.FieldQuantity},
		},
		entity.StepMoreItems: {
			Next:     stepSet(entity.StepCategorySelect, entity.StepServiceSelect),
			Previous: entity.StepQuantitySelect,
		},
		entity.StepServiceSelect: {
			Next:     stepSet(entity.StepLocationSelect),
			Previous: entity.StepMoreItems,
			Required: []string{entity.FieldService},
		},
		entity.StepLocationSelect: {
			Next:     stepSet(entity.StepConfirmation),
			Previous: entity.StepServiceSelect,
			Required: []string{entity.FieldLocation},
		},
		entity.StepConfirmation: {
			Next:     stepSet(entity.StepCompleted, entity.StepCancelled),
			Previous: entity.StepLocationSelect,
		},
		entity.StepCompleted: {},
		entity.StepCancelled: {},
	}}
}

func stepSet(steps ...entity.Step) map[entity.Step]bool {
	set := make(map[entity.Step]bool, len(steps))
	for _, s := range steps {
		set[s] = true
	}
	return set
}

func (g *StepGraph) IsAllowed(from, to entity.Step) bool {
	if from == to {
		return true
	}
	def, ok := g.steps[from]
	if !ok {
		return false
	}
	return def.Next[to]
}

// PreviousStep returns the back-navigation target, or "" when the step
// has no predecessor (the very first step and the terminal ones).
func (g *StepGraph) PreviousStep(from entity.Step) entity.Step {
	return g.steps[from].Previous
}

func (g *StepGraph) RequiredFields(step entity.Step) []string {
	return g.steps[step].Required
}

// ClearOnBack clears the session fields that belong to the step being
// left. Cart mutations for back-navigation (dropping a just-added line)
// are the aggregator's job, not the graph's.
func (g *StepGraph) ClearOnBack(sess *entity.Session, leaving entity.Step) {
	switch leaving {
	case entity.StepQuantitySelect:
		sess.SelectedItemID = ""
	case entity.StepItemSelect:
		sess.SelectedItemID = ""
	case entity.StepSubcategorySelect:
		sess.SubCategoryID = ""
	case entity.StepCategorySelect:
		sess.MainCategoryID = ""
		sess.SubCategoryID = ""
	case entity.StepLocationSelect:
		// service choice is re-asked on the previous step
	}
}
