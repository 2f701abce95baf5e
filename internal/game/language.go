// internal/game/language.go
package game

import "golang.org/x/text/language"

// DefaultLanguage is used when a client sends nothing usable.
const DefaultLanguage = "fr"

var (
	supportedLanguages = []language.Tag{language.French, language.English}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// NormalizeLanguage maps a client language tag ("en-GB", "FR", "fr_CA") onto
// a supported base language.
func NormalizeLanguage(s string) string {
	if s == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage
	}
	base, _ := supportedLanguages[idx].Base()
	return base.String()
}
