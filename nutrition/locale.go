package nutrition

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

type displayLang int

const (
	langEnglish displayLang = iota
	langArabic
)

// First entry is the fallback for unmatched tags.
var langMatcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

func resolveLang(lang string) displayLang {
	if lang == "" {
		return langEnglish
	}
	_, idx := language.MatchStrings(langMatcher, lang)
	if idx == 1 {
		return langArabic
	}
	return langEnglish
}

// SupportedLanguage reports whether lang matches one of the display
// languages (English or Arabic) rather than falling back.
func SupportedLanguage(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	_, _, conf := langMatcher.Match(tag)
	return conf != language.No
}

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

var arabicWeekdays = [...]string{
	"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت",
}

var arabicDigits = strings.NewReplacer(
	"0", "٠", "1", "١", "2", "٢", "3", "٣", "4", "٤",
	"5", "٥", "6", "٦", "7", "٧", "8", "٨", "9", "٩",
)

// FormatLongDate renders t as a long Gregorian date for display:
// "Friday, October 16, 2026" in English, "الجمعة، ١٦ أكتوبر ٢٠٢٦" in Arabic.
func FormatLongDate(t time.Time, lang string) string {
	if resolveLang(lang) == langArabic {
		s := fmt.Sprintf("%s، %d %s %d", arabicWeekdays[t.Weekday()], t.Day(), arabicMonths[t.Month()-1], t.Year())
		return arabicDigits.Replace(s)
	}
	return t.Format("Monday, January 2, 2006")
}
