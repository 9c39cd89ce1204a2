package core

import "strings"

// Theme buckets spending into thematic budgets.
type Theme string

const (
	ThemeChristmas Theme = "noël"
	ThemeBirthday  Theme = "anniversaire"
	ThemeBirth     Theme = "naissance"
	ThemeWedding   Theme = "mariage"
	ThemeOther     Theme = "autre"
)

// Themes lists every theme in display order.
func Themes() []Theme {
	return []Theme{ThemeChristmas, ThemeBirthday, ThemeBirth, ThemeWedding, ThemeOther}
}

// IsValid reports whether t is one of the fixed themes.
func (t Theme) IsValid() bool {
	switch t {
	case ThemeChristmas, ThemeBirthday, ThemeBirth, ThemeWedding, ThemeOther:
		return true
	}
	return false
}

// ParseTheme maps free input onto the enum. Anything unknown is "autre".
func ParseTheme(s string) Theme {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if t == "noel" {
		return ThemeChristmas
	}
	if t.IsValid() {
		return t
	}
	return ThemeOther
}

// ResolveClaimTheme picks the theme of a claim: the list's current theme,
// then the theme frozen on the item, then the claim snapshot, then "autre".
// Invalid values at any step are skipped.
func ResolveClaimTheme(listTheme, itemOriginalTheme, snapshotTheme *Theme) Theme {
	for _, t := range []*Theme{listTheme, itemOriginalTheme, snapshotTheme} {
		if t != nil && t.IsValid() {
			return *t
		}
	}
	return ThemeOther
}

// ThemePtr is a helper for optional themes.
func ThemePtr(t Theme) *Theme {
	return &t
}
