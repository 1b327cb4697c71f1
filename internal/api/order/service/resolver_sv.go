package orderService

import (
	"QahwaBot/internal/entity"
	"QahwaBot/pkg/gemini"
	"QahwaBot/pkg/nlp"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// classifierTimeout bounds the model call so a stuck classifier cannot sit
// on the per-user turn lock; it is deliberately shorter than the lock wait.
const classifierTimeout = 8 * time.Second

// resolveInput is everything a strategy may look at for one turn.
type resolveInput struct {
	Text        string
	Session     *entity.Session
	Menu        entity.Menu
	History     []string
	CartSummary string
}

// strategyFunc is one pure resolution strategy: it either produces an
// intent or passes. The resolver is an ordered fold over these, first
// success wins; no errors are used for control flow.
type strategyFunc func(in resolveInput) (*entity.Intent, bool)

type IntentResolver struct {
	log        *logrus.Logger
	classifier gemini.IGemini
	steps      *StepGraph
}

func NewIntentResolver(log *logrus.Logger, classifier gemini.IGemini, steps *StepGraph) *IntentResolver {
	return &IntentResolver{
		log:        log,
		classifier: classifier,
		steps:      steps,
	}
}

// Resolve turns raw text into exactly one Intent. It never fails: when
// every strategy passes, the turn resolves to a clarification intent that
// keeps the user on the current step.
func (r *IntentResolver) Resolve(ctx context.Context, in resolveInput) *entity.Intent {
	// Bare single-token commands (back, cancel) are unambiguous; they skip
	// the model entirely.
	if intent, ok := commandStrategy(in); ok {
		return r.validateForStep(in, intent)
	}

	intent := r.modelStrategy(ctx, in)

	if intent != nil && intent.Confidence == entity.ConfidenceLow {
		if upgraded, ok := r.hybridStrategy(in, intent); ok {
			intent = upgraded
		}
	}

	if intent == nil {
		for _, strategy := range []strategyFunc{
			regexStrategy,
			keywordStrategy,
			stepDefaultStrategy,
		} {
			if candidate, ok := strategy(in); ok {
				intent = candidate
				break
			}
		}
	}

	if intent == nil {
		intent = &entity.Intent{
			Action:     entity.ActionClarify,
			Confidence: entity.ConfidenceLow,
			Strategy:   "none",
		}
	}

	return r.validateForStep(in, intent)
}

// --- strategy 0: exact commands -------------------------------------------

func commandStrategy(in resolveInput) (*entity.Intent, bool) {
	cleaned := nlp.CleanText(in.Text)
	if strings.Contains(cleaned, " ") {
		return nil, false
	}

	switch {
	case nlp.IsBack(cleaned):
		return &entity.Intent{Action: entity.ActionBack, Confidence: entity.ConfidenceHigh, Strategy: "command"}, true
	case nlp.IsCancel(cleaned):
		return &entity.Intent{Action: entity.ActionCancel, Confidence: entity.ConfidenceHigh, Strategy: "command"}, true
	case nlp.IsHelp(cleaned):
		return &entity.Intent{Action: entity.ActionHelp, Confidence: entity.ConfidenceHigh, Strategy: "command"}, true
	case nlp.IsMenuRequest(cleaned):
		return &entity.Intent{Action: entity.ActionShowMenu, Confidence: entity.ConfidenceHigh, Strategy: "command"}, true
	}
	return nil, false
}

// --- strategy 1: the model -------------------------------------------------

// classifierResult mirrors the JSON contract with the classifier. Field
// values arrive as arbitrary JSON scalars and are stringified.
type classifierResult struct {
	Action              string                 `json:"action"`
	Confidence          string                 `json:"confidence"`
	Fields              map[string]interface{} `json:"fields"`
	Items               []classifierItem       `json:"items"`
	ClarificationNeeded bool                   `json:"clarification_needed"`
	ResponseText        string                 `json:"response_text"`
}

type classifierItem struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// modelStrategy invokes the external classifier. Any failure (transport
// error, timeout, unparsable output) yields nil so the deterministic
// strategies take over; classifier trouble never propagates.
func (r *IntentResolver) modelStrategy(ctx context.Context, in resolveInput) *entity.Intent {
	if r.classifier == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	raw, err := r.classifier.ClassifyTurn(callCtx, gemini.ClassifyRequest{
		Text:           in.Text,
		CurrentStep:    in.Session.CurrentStep.String(),
		Language:       string(in.Session.Language),
		History:        in.History,
		SelectedPath:   selectedPath(in.Session, in.Menu),
		CartSummary:    in.CartSummary,
		MenuVocabulary: menuVocabulary(in.Menu),
		AllowedActions: actionsForStep(in.Session.CurrentStep),
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"step":  in.Session.CurrentStep,
			"error": err.Error(),
		}).Warn("Classifier unavailable, falling back")
		return nil
	}

	intent, err := parseClassifierOutput(raw)
	if err != nil {
		// Malformed output gets one tolerant reparse before giving up on
		// the model for this turn.
		intent, err = parseClassifierOutput(extractJSONObject(raw))
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"step":  in.Session.CurrentStep,
				"error": err.Error(),
			}).Warn("Classifier output unparsable, falling back")
			return nil
		}
	}
	return intent
}

func parseClassifierOutput(raw string) (*entity.Intent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty classifier output")
	}

	var result classifierResult
	if err := jsoniter.UnmarshalFromString(raw, &result); err != nil {
		return nil, err
	}
	if result.Action == "" {
		return nil, fmt.Errorf("classifier output missing action")
	}

	intent := &entity.Intent{
		Action:     entity.IntentAction(result.Action),
		Confidence: parseConfidence(result.Confidence),
		Strategy:   "model",
	}
	if result.ClarificationNeeded {
		intent.Action = entity.ActionClarify
	}

	for key, value := range result.Fields {
		switch v := value.(type) {
		case string:
			if v != "" {
				intent.SetField(key, v)
			}
		case float64:
			intent.SetField(key, strconv.Itoa(int(v)))
		case bool:
			intent.SetField(key, strconv.FormatBool(v))
		}
	}

	for _, item := range result.Items {
		if item.ItemName == "" {
			continue
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		intent.Items = append(intent.Items, entity.ItemRequest{ItemName: item.ItemName, Quantity: qty})
	}

	if len(intent.Items) > 1 {
		intent.Action = entity.ActionMultiItemSelect
	}
	return intent, nil
}

func parseConfidence(raw string) entity.Confidence {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return entity.ConfidenceHigh
	case "medium", "mid":
		return entity.ConfidenceMedium
	default:
		return entity.ConfidenceLow
	}
}

// extractJSONObject cuts the first top-level {...} out of text that may be
// wrapped in markdown fences or prose.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// --- strategy 2: hybrid upgrade of a low-confidence guess -----------------

// hybridStrategy merges fields found by the deterministic extractors into
// a low-confidence model intent. The intent is upgraded only when an
// extractor produced a field the current step actually needs; otherwise
// the low-confidence guess falls through to the fallback chain.
func (r *IntentResolver) hybridStrategy(in resolveInput, low *entity.Intent) (*entity.Intent, bool) {
	extracted, ok := extractForStep(in)
	if !ok {
		return low, false
	}

	if required := r.steps.RequiredFields(in.Session.CurrentStep); len(required) > 0 && len(extracted.Items) == 0 {
		supplies := false
		for _, field := range required {
			if extracted.Field(field) != "" {
				supplies = true
				break
			}
		}
		if !supplies {
			return low, false
		}
	}

	merged := *low
	merged.Action = extracted.Action
	merged.Items = extracted.Items
	merged.Confidence = entity.ConfidenceMedium
	merged.Strategy = "hybrid"
	for key, value := range extracted.Fields {
		merged.SetField(key, value)
	}
	return &merged, true
}

// extractForStep runs the sub-extractors appropriate to the current step.
func extractForStep(in resolveInput) (*entity.Intent, bool) {
	sess := in.Session
	text := in.Text

	// A compound utterance naming several items trumps the step.
	pairs := nlp.ExtractItemPairs(text, itemCandidates(in.Menu, "", ""))
	if len(pairs) > 1 {
		return multiItemIntent(text, pairs, "extractor"), true
	}

	switch sess.CurrentStep {
	case entity.StepLanguageSelect:
		if lang, ok := detectLanguageChoice(text); ok {
			intent := &entity.Intent{Action: entity.ActionLanguageSelect, Strategy: "extractor"}
			intent.SetField(entity.FieldLanguage, string(lang))
			return intent, true
		}

	case entity.StepCategorySelect:
		if match, _, ok := nlp.BestMatch(text, categoryCandidates(in.Menu)); ok {
			intent := &entity.Intent{Action: entity.ActionCategorySelect, Strategy: "extractor"}
			intent.SetField(entity.FieldCategory, match.ID)
			return intent, true
		}
		// Naming an item outright skips the category browse.
		return itemIntent(text, in.Menu, "", "")

	case entity.StepSubcategorySelect:
		if match, _, ok := nlp.BestMatch(text, subCategoryCandidates(in.Menu, sess.MainCategoryID)); ok {
			intent := &entity.Intent{Action: entity.ActionSubcategorySelect, Strategy: "extractor"}
			intent.SetField(entity.FieldSubcategory, match.ID)
			return intent, true
		}
		return itemIntent(text, in.Menu, sess.MainCategoryID, "")

	case entity.StepItemSelect:
		if intent, ok := itemIntent(text, in.Menu, sess.MainCategoryID, sess.SubCategoryID); ok {
			return intent, true
		}
		return itemIntent(text, in.Menu, "", "")

	case entity.StepQuantitySelect:
		if qty, ok := nlp.ParseNumber(text); ok {
			intent := &entity.Intent{Action: entity.ActionQuantitySelect, Strategy: "extractor"}
			intent.SetField(entity.FieldQuantity, strconv.Itoa(qty))
			return intent, true
		}

	case entity.StepMoreItems:
		if nlp.IsYes(text) {
			return &entity.Intent{Action: entity.ActionYes, Strategy: "extractor"}, true
		}
		if nlp.IsNo(text) {
			return &entity.Intent{Action: entity.ActionNo, Strategy: "extractor"}, true
		}
		// Naming another item here adds it straight to the cart.
		if len(pairs) == 1 {
			intent := &entity.Intent{Action: entity.ActionItemSelect, Strategy: "extractor"}
			intent.SetField(entity.FieldItem, pairs[0].ID)
			intent.SetField(entity.FieldQuantity, strconv.Itoa(pairs[0].Quantity))
			return intent, true
		}

	case entity.StepServiceSelect:
		if service, ok := serviceChoice(text); ok {
			intent := &entity.Intent{Action: entity.ActionServiceSelect, Strategy: "extractor"}
			intent.SetField(entity.FieldService, service)
			return intent, true
		}

	case entity.StepLocationSelect:
		intent := &entity.Intent{Action: entity.ActionLocationInput, Strategy: "extractor"}
		intent.SetField(entity.FieldLocation, strings.TrimSpace(text))
		return intent, true

	case entity.StepConfirmation:
		if nlp.IsConfirm(text) || nlp.IsYes(text) {
			return &entity.Intent{Action: entity.ActionConfirm, Strategy: "extractor"}, true
		}
		if nlp.IsNo(text) || nlp.IsCancel(text) {
			return &entity.Intent{Action: entity.ActionCancel, Strategy: "extractor"}, true
		}
	}

	return nil, false
}

// itemIntent matches the utterance against the menu items in scope. A
// quantity rides along only when the text actually carried one, so a bare
// item name still goes through the quantity prompt.
func itemIntent(text string, menu entity.Menu, categoryID, subCategoryID string) (*entity.Intent, bool) {
	match, _, ok := nlp.BestMatch(text, itemCandidates(menu, categoryID, subCategoryID))
	if !ok {
		return nil, false
	}

	intent := &entity.Intent{Action: entity.ActionItemSelect, Strategy: "extractor"}
	intent.SetField(entity.FieldItem, match.ID)
	if qty, found := nlp.ParseNumber(text); found && qty > 0 {
		intent.SetField(entity.FieldQuantity, strconv.Itoa(qty))
	}
	return intent, true
}

func detectLanguageChoice(text string) (entity.Language, bool) {
	if n, ok := nlp.ParseExactDigit(text); ok {
		switch n {
		case 1:
			return entity.LanguageArabic, true
		case 2:
			return entity.LanguageEnglish, true
		}
		return entity.LanguageUnknown, false
	}

	cleaned := nlp.CleanText(text)
	switch {
	case strings.Contains(cleaned, "عربي") || strings.Contains(cleaned, "العربية") || strings.Contains(cleaned, "arabic"):
		return entity.LanguageArabic, true
	case strings.Contains(cleaned, "english") || strings.Contains(cleaned, "انجليزي") || strings.Contains(cleaned, "الانجليزية"):
		return entity.LanguageEnglish, true
	}
	return entity.LanguageUnknown, false
}

// serviceChoice accepts the strict numeric shortcut (exactly "1" or "2")
// or an unambiguous keyword. Anything with stray digits is rejected.
func serviceChoice(text string) (string, bool) {
	if n, ok := nlp.ParseExactDigit(text); ok {
		switch n {
		case 1:
			return string(entity.ServiceDineIn), true
		case 2:
			return string(entity.ServiceDelivery), true
		}
		return "", false
	}
	if strings.ContainsAny(nlp.NormalizeDigits(text), "0123456789") {
		return "", false
	}
	return nlp.DetectService(text)
}

// --- strategies 3+: fallback chain ----------------------------------------

var quantityPattern = regexp.MustCompile(`\b([0-9]{1,3})\b`)

// regexStrategy scrapes whatever structured scraps survive in the text.
func regexStrategy(in resolveInput) (*entity.Intent, bool) {
	text := nlp.NormalizeDigits(in.Text)

	if in.Session.CurrentStep == entity.StepQuantitySelect {
		if m := quantityPattern.FindString(text); m != "" {
			intent := &entity.Intent{Action: entity.ActionQuantitySelect, Confidence: entity.ConfidenceLow, Strategy: "regex"}
			intent.SetField(entity.FieldQuantity, m)
			return intent, true
		}
	}

	if service, ok := nlp.DetectService(text); ok {
		intent := &entity.Intent{Action: entity.ActionServiceSelect, Confidence: entity.ConfidenceLow, Strategy: "regex"}
		intent.SetField(entity.FieldService, service)
		return intent, true
	}

	return nil, false
}

func keywordStrategy(in resolveInput) (*entity.Intent, bool) {
	text := in.Text
	switch {
	case nlp.IsBack(text):
		return &entity.Intent{Action: entity.ActionBack, Confidence: entity.ConfidenceMedium, Strategy: "keyword"}, true
	case nlp.IsCancel(text):
		return &entity.Intent{Action: entity.ActionCancel, Confidence: entity.ConfidenceMedium, Strategy: "keyword"}, true
	case nlp.IsMenuRequest(text):
		return &entity.Intent{Action: entity.ActionShowMenu, Confidence: entity.ConfidenceMedium, Strategy: "keyword"}, true
	case nlp.IsHelp(text):
		return &entity.Intent{Action: entity.ActionHelp, Confidence: entity.ConfidenceMedium, Strategy: "keyword"}, true
	case nlp.IsGreeting(text):
		return &entity.Intent{Action: entity.ActionSmallTalk, Confidence: entity.ConfidenceMedium, Strategy: "keyword"}, true
	case nlp.IsYes(text):
		return &entity.Intent{Action: entity.ActionYes, Confidence: entity.ConfidenceLow, Strategy: "keyword"}, true
	case nlp.IsNo(text):
		return &entity.Intent{Action: entity.ActionNo, Confidence: entity.ConfidenceLow, Strategy: "keyword"}, true
	}
	return nil, false
}

// stepDefaultStrategy reuses the step extractors as a last resort before
// asking for clarification.
func stepDefaultStrategy(in resolveInput) (*entity.Intent, bool) {
	intent, ok := extractForStep(in)
	if !ok {
		return nil, false
	}
	intent.Confidence = entity.ConfidenceLow
	intent.Strategy = "step-default"
	return intent, true
}

// --- step validators -------------------------------------------------------

// validateForStep applies each step's deterministic acceptance rule. The
// rules can override a model guess: a strict small-enum step rejects any
// input that does not survive exact matching, whatever the model thought.
func (r *IntentResolver) validateForStep(in resolveInput, intent *entity.Intent) *entity.Intent {
	switch intent.Action {
	case entity.ActionServiceSelect:
		service, ok := serviceChoice(in.Text)
		if !ok {
			// Keyword-free model guesses survive only outside the strict
			// digit rule; "12" and friends are thrown out entirely.
			if strings.ContainsAny(nlp.NormalizeDigits(in.Text), "0123456789") || intent.Field(entity.FieldService) == "" {
				return reject(intent)
			}
		} else {
			intent.SetField(entity.FieldService, service)
		}

	case entity.ActionQuantitySelect:
		qty, err := strconv.Atoi(intent.Field(entity.FieldQuantity))
		if err != nil || qty < entity.MinQuantity || qty > entity.MaxQuantity {
			return reject(intent)
		}

	case entity.ActionLanguageSelect:
		lang := intent.Field(entity.FieldLanguage)
		if lang != string(entity.LanguageArabic) && lang != string(entity.LanguageEnglish) {
			if detected, ok := detectLanguageChoice(in.Text); ok {
				intent.SetField(entity.FieldLanguage, string(detected))
			} else {
				return reject(intent)
			}
		}

	case entity.ActionMultiItemSelect:
		for i := range intent.Items {
			if intent.Items[i].Quantity < entity.MinQuantity {
				intent.Items[i].Quantity = entity.MinQuantity
			}
			if intent.Items[i].Quantity > entity.MaxQuantity {
				return reject(intent)
			}
		}
	}

	return intent
}

func reject(intent *entity.Intent) *entity.Intent {
	return &entity.Intent{
		Action:     entity.ActionClarify,
		Confidence: entity.ConfidenceLow,
		Strategy:   intent.Strategy + "+validator",
	}
}

// --- candidate builders ----------------------------------------------------

func categoryCandidates(menu entity.Menu) []nlp.Candidate {
	var out []nlp.Candidate
	for _, c := range menu.Categories {
		out = append(out, nlp.Candidate{ID: c.ID, Names: []string{c.NameEN, c.NameAR}})
	}
	return out
}

func subCategoryCandidates(menu entity.Menu, categoryID string) []nlp.Candidate {
	var out []nlp.Candidate
	for _, s := range menu.SubCategories {
		if categoryID != "" && s.CategoryID != categoryID {
			continue
		}
		out = append(out, nlp.Candidate{ID: s.ID, Names: []string{s.NameEN, s.NameAR}})
	}
	return out
}

func itemCandidates(menu entity.Menu, categoryID, subCategoryID string) []nlp.Candidate {
	var out []nlp.Candidate
	for _, it := range menu.ItemsOf(categoryID, subCategoryID) {
		out = append(out, nlp.Candidate{ID: it.ID, Names: []string{it.NameEN, it.NameAR}})
	}
	return out
}

func menuVocabulary(menu entity.Menu) []string {
	var out []string
	for _, it := range menu.Items {
		if it.Available {
			out = append(out, it.NameEN)
		}
	}
	return out
}

func multiItemIntent(text string, pairs []nlp.ItemPair, strategy string) *entity.Intent {
	intent := &entity.Intent{
		Action:     entity.ActionMultiItemSelect,
		Confidence: entity.ConfidenceMedium,
		Strategy:   strategy,
	}
	for _, pair := range pairs {
		intent.Items = append(intent.Items, entity.ItemRequest{
			ItemID:   pair.ID,
			ItemName: pair.Name,
			Quantity: pair.Quantity,
		})
	}
	if service, ok := nlp.DetectService(text); ok {
		intent.SetField(entity.FieldService, service)
	}
	return intent
}

func selectedPath(sess *entity.Session, menu entity.Menu) string {
	var parts []string
	if c, ok := menu.CategoryByID(sess.MainCategoryID); ok {
		parts = append(parts, c.NameEN)
	}
	if s, ok := menu.SubCategoryByID(sess.SubCategoryID); ok {
		parts = append(parts, s.NameEN)
	}
	if it, ok := menu.ItemByID(sess.SelectedItemID); ok {
		parts = append(parts, it.NameEN)
	}
	return strings.Join(parts, " > ")
}

func actionsForStep(step entity.Step) []string {
	common := []string{
		string(entity.ActionMultiItemSelect),
		string(entity.ActionShowMenu),
		string(entity.ActionHelp),
		string(entity.ActionBack),
		string(entity.ActionSmallTalk),
		string(entity.ActionCancel),
		string(entity.ActionClarify),
	}

	var own []string
	switch step {
	case entity.StepLanguageSelect:
		own = []string{string(entity.ActionLanguageSelect)}
	case entity.StepCategorySelect:
		own = []string{string(entity.ActionCategorySelect), string(entity.ActionItemSelect)}
	case entity.StepSubcategorySelect:
		own = []string{string(entity.ActionSubcategorySelect), string(entity.ActionItemSelect)}
	case entity.StepItemSelect:
		own = []string{string(entity.ActionItemSelect)}
	case entity.StepQuantitySelect:
		own = []string{string(entity.ActionQuantitySelect)}
	case entity.StepMoreItems:
		own = []string{string(entity.ActionYes), string(entity.ActionNo)}
	case entity.StepServiceSelect:
		own = []string{string(entity.ActionServiceSelect)}
	case entity.StepLocationSelect:
		own = []string{string(entity.ActionLocationInput)}
	case entity.StepConfirmation:
		own = []string{string(entity.ActionConfirm), string(entity.ActionCancel)}
	}
	return append(own, common...)
}
