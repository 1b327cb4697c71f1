package entity

type IntentAction string

const (
	ActionLanguageSelect    IntentAction = "language_select"
	ActionCategorySelect    IntentAction = "category_select"
	ActionSubcategorySelect IntentAction = "subcategory_select"
	ActionItemSelect        IntentAction = "item_select"
	ActionMultiItemSelect   IntentAction = "multi_item_select"
	ActionQuantitySelect    IntentAction = "quantity_select"
	ActionYes               IntentAction = "yes"
	ActionNo                IntentAction = "no"
	ActionServiceSelect     IntentAction = "service_select"
	ActionLocationInput     IntentAction = "location_input"
	ActionConfirm           IntentAction = "confirm"
	ActionCancel            IntentAction = "cancel"
	ActionShowMenu          IntentAction = "show_menu"
	ActionHelp              IntentAction = "help"
	ActionBack              IntentAction = "back"
	ActionSmallTalk         IntentAction = "small_talk"
	ActionClarify           IntentAction = "clarify"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ItemRequest is one (item, quantity) pair extracted from an utterance.
// ItemName is the raw user phrasing; ItemID is set once it has been
// resolved against the menu.
type ItemRequest struct {
	ItemID   string `json:"item_id,omitempty"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// Intent is the structured interpretation of a single turn. It lives for
// one turn only and is never persisted.
type Intent struct {
	Action     IntentAction      `json:"action"`
	Fields     map[string]string `json:"fields,omitempty"`
	Items      []ItemRequest     `json:"items,omitempty"`
	Confidence Confidence        `json:"confidence"`
	Strategy   string            `json:"strategy"`
}

func (i *Intent) Field(key string) string {
	if i == nil || i.Fields == nil {
		return ""
	}
	return i.Fields[key]
}

func (i *Intent) SetField(key, value string) {
	if i.Fields == nil {
		i.Fields = make(map[string]string)
	}
	i.Fields[key] = value
}

// Field keys shared between the classifier contract and the deterministic
// extractors.
const (
	FieldLanguage    = "language"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldItem        = "item"
	FieldQuantity    = "quantity"
	FieldService     = "service"
	FieldLocation    = "location"
)
