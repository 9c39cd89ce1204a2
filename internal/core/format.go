package core

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Supported display locales. French is the default.
const (
	LocaleFR = "fr"
	LocaleEN = "en"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.French, language.English})

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// NormalizeLocale maps any BCP 47 tag or Accept-Language value onto a
// supported locale.
func NormalizeLocale(locale string) string {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return LocaleFR
	}
	tag, _, _ := localeMatcher.Match(tags...)
	if base, _ := tag.Base(); base.String() == LocaleEN {
		return LocaleEN
	}
	return LocaleFR
}

func localeTag(locale string) language.Tag {
	if NormalizeLocale(locale) == LocaleEN {
		return language.English
	}
	return language.French
}

// FormatPrice renders m as euros: "12,34 €" in French, "€12.34" in English.
func FormatPrice(m Money, locale string) string {
	tag := localeTag(locale)
	p := message.NewPrinter(tag)
	amount := p.Sprint(number.Decimal(m.Euros(), number.Scale(2)))
	if tag == language.English {
		return "€" + amount
	}
	return amount + " €"
}

// FormatDate renders the long form: "1 mars 2025" or "March 1, 2025".
func FormatDate(d Date, locale string) string {
	if d.IsZero() {
		return ""
	}
	if NormalizeLocale(locale) == LocaleEN {
		return d.Format("January 2, 2006")
	}
	return fmt.Sprintf("%d %s %d", d.Day(), frenchMonths[d.Month()-1], d.Year())
}

// FormatShortDate renders "01/03/2025" (French) or "03/01/2025" (English).
func FormatShortDate(d Date, locale string) string {
	if d.IsZero() {
		return ""
	}
	if NormalizeLocale(locale) == LocaleEN {
		return d.Format("01/02/2006")
	}
	return d.Format("02/01/2006")
}

// FormatPercent renders a progress value with French spacing.
func FormatPercent(p int) string {
	return fmt.Sprintf("%d %%", p)
}
