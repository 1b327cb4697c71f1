package nlp

import "strings"

var yesWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true,
	"okay": true, "y": true,
	"نعم": true, "ايوه": true, "ايوا": true, "اي": true, "اكيد": true,
	"تمام": true, "طيب": true, "ابشر": true, "يس": true,
}

var noWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "n": true, "done": true,
	"enough": true, "finish": true,
	"لا": true, "لأ": true, "خلاص": true, "كفاية": true, "كفايه": true,
	"بس": true, "انتهيت": true,
}

var backWords = map[string]bool{
	"back": true, "previous": true, "return": true,
	"رجوع": true, "ارجع": true, "رجعني": true, "خلف": true, "السابق": true,
}

var cancelWords = map[string]bool{
	"cancel": true, "stop": true, "quit": true, "exit": true,
	"الغاء": true, "الغي": true, "كنسل": true, "وقف": true,
}

var menuWords = map[string]bool{
	"menu": true, "list": true,
	"منيو": true, "قائمة": true, "قائمه": true, "المنيو": true, "القائمة": true,
}

var helpWords = map[string]bool{
	"help": true,
	"مساعدة": true, "مساعده": true, "ساعدني": true,
}

var confirmWords = map[string]bool{
	"confirm": true, "confirmed": true,
	"اكد": true, "تاكيد": true, "اعتمد": true, "موافق": true,
}

var greetingPhrases = []string{
	"hi", "hello", "hey", "good morning", "good evening",
	"مرحبا", "هلا", "اهلا", "السلام عليكم", "سلام", "صباح الخير", "مساء الخير",
}

var dineInWords = []string{
	"dine", "dine in", "table", "here", "inside",
	"محلي", "بالمحل", "طاولة", "طاوله", "داخل", "هنا",
}

var deliveryWords = []string{
	"delivery", "deliver", "home", "address",
	"توصيل", "ديليفري", "دليفري", "للبيت", "المنزل", "وصل",
}

func IsYes(text string) bool {
	return anyToken(text, yesWords)
}

func IsNo(text string) bool {
	return anyToken(text, noWords)
}

func IsBack(text string) bool {
	return anyToken(text, backWords)
}

func IsCancel(text string) bool {
	return anyToken(text, cancelWords)
}

func IsMenuRequest(text string) bool {
	return anyToken(text, menuWords)
}

func IsHelp(text string) bool {
	return anyToken(text, helpWords)
}

func IsConfirm(text string) bool {
	return anyToken(text, confirmWords)
}

// IsGreeting matches only short salutations; a long sentence that happens
// to start with "hi" is not treated as a session-reset greeting.
func IsGreeting(text string) bool {
	cleaned := CleanText(text)
	if cleaned == "" || len(strings.Fields(cleaned)) > 4 {
		return false
	}
	for _, phrase := range greetingPhrases {
		if cleaned == phrase || strings.HasPrefix(cleaned, phrase+" ") {
			return true
		}
	}
	return false
}

// DetectService scans for dine-in/delivery keywords. The numeric shortcut
// ("1"/"2") is handled by the step validator, not here.
func DetectService(text string) (string, bool) {
	cleaned := " " + CleanText(text) + " "
	for _, w := range deliveryWords {
		if strings.Contains(cleaned, " "+w+" ") {
			return "delivery", true
		}
	}
	for _, w := range dineInWords {
		if strings.Contains(cleaned, " "+w+" ") {
			return "dine_in", true
		}
	}
	return "", false
}

func anyToken(text string, table map[string]bool) bool {
	for _, token := range strings.Fields(CleanText(text)) {
		if table[token] {
			return true
		}
	}
	return false
}
