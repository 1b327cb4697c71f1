package orderService

import (
	"QahwaBot/internal/entity"
	"fmt"
	"strings"
)

// All user-facing copy lives here, keyed by session language. Step prompts
// return the text plus up to three quick-reply buttons; longer option sets
// are rendered as numbered lists inside the text instead.

const maxQuickButtons = 3

func promptLanguage() (string, []string) {
	return "مرحباً بك في مقهى قهوة! ☕\nWelcome to Qahwa Cafe!\n\n1. العربية\n2. English",
		[]string{"العربية", "English"}
}

func promptCategories(lang entity.Language, menu entity.Menu) (string, []string) {
	var b strings.Builder
	if lang == entity.LanguageArabic {
		b.WriteString("ماذا تحب أن تطلب؟\n\n")
	} else {
		b.WriteString("What would you like to order?\n\n")
	}
	var buttons []string
	for i, c := range menu.Categories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Name(lang))
		buttons = append(buttons, c.Name(lang))
	}
	return strings.TrimSpace(b.String()), capButtons(buttons)
}

func promptSubcategories(lang entity.Language, menu entity.Menu, categoryID string) (string, []string) {
	subs := menu.SubCategoriesOf(categoryID)
	var b strings.Builder
	if lang == entity.LanguageArabic {
		b.WriteString("اختر نوعاً:\n\n")
	} else {
		b.WriteString("Pick a type:\n\n")
	}
	var buttons []string
	for i, sc := range subs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sc.Name(lang))
		buttons = append(buttons, sc.Name(lang))
	}
	return strings.TrimSpace(b.String()), capButtons(buttons)
}

func promptItems(lang entity.Language, items []entity.MenuItem) (string, []string) {
	var b strings.Builder
	if lang == entity.LanguageArabic {
		b.WriteString("تفضل بالاختيار:\n\n")
	} else {
		b.WriteString("Here you go:\n\n")
	}
	var buttons []string
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s — %.2f\n", i+1, it.Name(lang), it.Price)
		buttons = append(buttons, it.Name(lang))
	}
	return strings.TrimSpace(b.String()), capButtons(buttons)
}

func promptQuantity(lang entity.Language, itemName string) (string, []string) {
	if lang == entity.LanguageArabic {
		return fmt.Sprintf("كم %s تريد؟ (1-%d)", itemName, entity.MaxQuantity), []string{"1", "2", "3"}
	}
	return fmt.Sprintf("How many %s would you like? (1-%d)", itemName, entity.MaxQuantity), []string{"1", "2", "3"}
}

func promptMoreItems(lang entity.Language, cart *entity.Order) (string, []string) {
	summary := cartSummaryText(lang, cart)
	if lang == entity.LanguageArabic {
		return summary + "\n\nهل تريد إضافة شيء آخر؟", []string{"نعم", "لا"}
	}
	return summary + "\n\nWould you like anything else?", []string{"Yes", "No"}
}

func promptService(lang entity.Language) (string, []string) {
	if lang == entity.LanguageArabic {
		return "كيف تريد استلام طلبك؟\n\n1. في المقهى\n2. توصيل", []string{"1", "2"}
	}
	return "How would you like your order?\n\n1. Dine in\n2. Delivery", []string{"1", "2"}
}

func promptLocation(lang entity.Language, serviceType entity.ServiceType) (string, []string) {
	if serviceType == entity.ServiceDineIn {
		if lang == entity.LanguageArabic {
			return fmt.Sprintf("ما رقم طاولتك؟ (%d-%d)", entity.MinTableNumber, entity.MaxTableNumber), nil
		}
		return fmt.Sprintf("What is your table number? (%d-%d)", entity.MinTableNumber, entity.MaxTableNumber), nil
	}
	if lang == entity.LanguageArabic {
		return "ما هو عنوان التوصيل؟", nil
	}
	return "What is your delivery address?", nil
}

func promptConfirmation(lang entity.Language, cart *entity.Order) (string, []string) {
	summary := cartSummaryText(lang, cart)
	var tail string
	if lang == entity.LanguageArabic {
		if cart.ServiceType == entity.ServiceDineIn {
			tail = fmt.Sprintf("\nالخدمة: في المقهى، طاولة %s", cart.Location)
		} else {
			tail = fmt.Sprintf("\nالخدمة: توصيل إلى %s", cart.Location)
		}
		return summary + tail + "\n\nهل تؤكد الطلب؟", []string{"تأكيد", "إلغاء"}
	}
	if cart.ServiceType == entity.ServiceDineIn {
		tail = fmt.Sprintf("\nService: dine in, table %s", cart.Location)
	} else {
		tail = fmt.Sprintf("\nService: delivery to %s", cart.Location)
	}
	return summary + tail + "\n\nConfirm your order?", []string{"Confirm", "Cancel"}
}

func cartSummaryText(lang entity.Language, cart *entity.Order) string {
	if cart == nil || len(cart.Lines) == 0 {
		if lang == entity.LanguageArabic {
			return "سلتك فارغة."
		}
		return "Your cart is empty."
	}

	var b strings.Builder
	if lang == entity.LanguageArabic {
		b.WriteString("طلبك:\n")
	} else {
		b.WriteString("Your order:\n")
	}
	for _, line := range cart.Lines {
		fmt.Fprintf(&b, "- %s x%d = %.2f\n", line.ItemName, line.Quantity, line.Subtotal())
	}
	if lang == entity.LanguageArabic {
		fmt.Fprintf(&b, "المجموع: %.2f", cart.Total())
	} else {
		fmt.Fprintf(&b, "Total: %.2f", cart.Total())
	}
	return b.String()
}

func msgConfirmed(lang entity.Language, cart *entity.Order) string {
	if lang == entity.LanguageArabic {
		return fmt.Sprintf("تم تأكيد طلبك! ✅\nرقم الطلب: %s\nالمجموع: %.2f\nشكراً لك!", cart.ID, cart.Total())
	}
	return fmt.Sprintf("Order confirmed! ✅\nOrder number: %s\nTotal: %.2f\nThank you!", cart.ID, cart.Total())
}

func msgCancelled(lang entity.Language) string {
	if lang == entity.LanguageArabic {
		return "تم إلغاء الطلب. أرسل أي رسالة للبدء من جديد."
	}
	return "Order cancelled. Send any message to start again."
}

func msgApology(lang entity.Language) string {
	if lang == entity.LanguageArabic {
		return "عذراً، حدث خطأ من جهتنا. حاول مرة أخرى من فضلك."
	}
	return "Sorry, something went wrong on our side. Please try again."
}

func msgBusy(lang entity.Language) string {
	if lang == entity.LanguageArabic {
		return "ما زلنا نعالج رسالتك السابقة، لحظة من فضلك..."
	}
	return "Still working on your previous message, one moment please..."
}

func msgInvalidQuantity(lang entity.Language) string {
	if lang == entity.LanguageArabic {
		return fmt.Sprintf("الرجاء إدخال كمية بين %d و %d.", entity.MinQuantity, entity.MaxQuantity)
	}
	return fmt.Sprintf("Please enter a quantity between %d and %d.", entity.MinQuantity, entity.MaxQuantity)
}

func msgInvalidService(lang entity.Language) string {
	if lang == entity.LanguageArabic {
		return "لم أفهم اختيارك. الرجاء الرد بـ 1 (في المقهى) أو 2 (توصيل)."
	}
	return "I didn't catch that. Please reply 1 (dine in) or 2 (delivery)."
}

func msgInvalidTable(lang entity.Language) string {
	if lang == entity.LanguageArabic {
		return fmt.Sprintf("رقم الطاولة يجب أن يكون بين %d و %d.", entity.MinTableNumber, entity.MaxTableNumber)
	}
	return fmt.Sprintf("Table number must be between %d and %d.", entity.MinTableNumber, entity.MaxTableNumber)
}

func msgItemNotFound(lang entity.Language, suggestions []string) string {
	var b strings.Builder
	if lang == entity.LanguageArabic {
		b.WriteString("لم أجد هذا الصنف في القائمة.")
	} else {
		b.WriteString("I couldn't find that on the menu.")
	}
	if len(suggestions) > 0 {
		if lang == entity.LanguageArabic {
			b.WriteString(" هل تقصد: ")
		} else {
			b.WriteString(" Did you mean: ")
		}
		b.WriteString(strings.Join(suggestions, ", "))
		b.WriteString("?")
	}
	return b.String()
}

func msgClarify(lang entity.Language, step entity.Step) string {
	if lang == entity.LanguageArabic {
		switch step {
		case entity.StepLanguageSelect:
			return "الرجاء اختيار اللغة: 1. العربية  2. English"
		case entity.StepQuantitySelect:
			return "كم الكمية المطلوبة؟"
		case entity.StepServiceSelect:
			return msgInvalidService(lang)
		case entity.StepLocationSelect:
			return "الرجاء إدخال الموقع."
		case entity.StepConfirmation:
			return "الرجاء الرد بـ تأكيد أو إلغاء."
		}
		return "عذراً، لم أفهم. يمكنك كتابة 'قائمة' لعرض الأصناف أو 'مساعدة'."
	}

	switch step {
	case entity.StepLanguageSelect:
		return "Please pick a language: 1. العربية  2. English"
	case entity.StepQuantitySelect:
		return "How many would you like?"
	case entity.StepServiceSelect:
		return msgInvalidService(lang)
	case entity.StepLocationSelect:
		return "Please enter your location."
	case entity.StepConfirmation:
		return "Please reply Confirm or Cancel."
	}
	return "Sorry, I didn't understand. Type 'menu' to see our items or 'help'."
}

func msgHelp(lang entity.Language) string {
	if lang == entity.LanguageArabic {
		return "يمكنك:\n- كتابة اسم أي صنف لطلبه مباشرة\n- كتابة 'قائمة' لعرض الأصناف\n- كتابة 'رجوع' للخطوة السابقة\n- كتابة 'إلغاء' لإلغاء الطلب"
	}
	return "You can:\n- type any item name to order it directly\n- type 'menu' to see our items\n- type 'back' to go one step back\n- type 'cancel' to cancel the order"
}

func capButtons(buttons []string) []string {
	if len(buttons) > maxQuickButtons {
		return nil
	}
	return buttons
}
