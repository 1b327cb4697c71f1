package entity

import "time"

type Step string

const (
	StepLanguageSelect    Step = "language_select"
	StepCategorySelect    Step = "category_select"
	StepSubcategorySelect Step = "subcategory_select"
	StepItemSelect        Step = "item_select"
	StepQuantitySelect    Step = "quantity_select"
	StepMoreItems         Step = "more_items"
	StepServiceSelect     Step = "service_select"
	StepLocationSelect    Step = "location_select"
	StepConfirmation      Step = "confirmation"
	StepCompleted         Step = "completed"
	StepCancelled         Step = "cancelled"
)

func (s Step) String() string {
	return string(s)
}

// IsTerminal reports whether the next inbound message should start a
// fresh session instead of continuing this one.
func (s Step) IsTerminal() bool {
	return s == StepCompleted || s == StepCancelled
}

// IsCheckout reports whether the step belongs to the checkout tail of the
// flow. Checkout steps are never auto-reset by a greeting.
func (s Step) IsCheckout() bool {
	switch s {
	case StepServiceSelect, StepLocationSelect, StepConfirmation:
		return true
	}
	return false
}

type Language string

const (
	LanguageUnknown Language = ""
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
)

type OrderMode string

const (
	OrderModeExplore OrderMode = "explore"
	OrderModeQuick   OrderMode = "quick"
)

// Session is the per-user conversational state. Exactly one Session exists
// per phone number and it is only mutated while the user's turn lock is held.
type Session struct {
	PhoneNumber    string    `db:"phone_number"`
	DisplayName    string    `db:"display_name"`
	CurrentStep    Step      `db:"current_step"`
	Language       Language  `db:"language"`
	MainCategoryID string    `db:"main_category_id"`
	SubCategoryID  string    `db:"sub_category_id"`
	SelectedItemID string    `db:"selected_item_id"`
	OrderMode      OrderMode `db:"order_mode"`
	Processing     bool      `db:"-"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (s *Session) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(s.UpdatedAt) > window
}
