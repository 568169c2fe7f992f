package marketplace

import (
	"strings"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

// Alias tables mapping source-specific condition and language strings onto
// the platform vocabularies. Unrecognized values fall back to the most common
// grade/language instead of failing the observation.

var conditionAliases = map[string]string{
	"m":                 models.ConditionMint,
	"mint":              models.ConditionMint,
	"nm":                models.ConditionNearMint,
	"nm-mint":           models.ConditionNearMint,
	"near mint":         models.ConditionNearMint,
	"near_mint":         models.ConditionNearMint,
	"nearmint":          models.ConditionNearMint,
	"ex":                models.ConditionLightlyPlayed,
	"excellent":         models.ConditionLightlyPlayed,
	"sp":                models.ConditionLightlyPlayed,
	"slightly played":   models.ConditionLightlyPlayed,
	"lp":                models.ConditionLightlyPlayed,
	"lightly played":    models.ConditionLightlyPlayed,
	"lightly_played":    models.ConditionLightlyPlayed,
	"gd":                models.ConditionModeratelyPlayed,
	"good":              models.ConditionModeratelyPlayed,
	"mp":                models.ConditionModeratelyPlayed,
	"played":            models.ConditionModeratelyPlayed,
	"moderately played": models.ConditionModeratelyPlayed,
	"moderately_played": models.ConditionModeratelyPlayed,
	"vg":                models.ConditionModeratelyPlayed,
	"hp":                models.ConditionHeavilyPlayed,
	"heavily played":    models.ConditionHeavilyPlayed,
	"heavily_played":    models.ConditionHeavilyPlayed,
	"poor":              models.ConditionDamaged,
	"dmg":               models.ConditionDamaged,
	"damaged":           models.ConditionDamaged,
}

var languageAliases = map[string]string{
	"en":                  models.LangEnglish,
	"eng":                 models.LangEnglish,
	"english":             models.LangEnglish,
	"es":                  models.LangSpanish,
	"sp":                  models.LangSpanish,
	"spanish":             models.LangSpanish,
	"fr":                  models.LangFrench,
	"french":              models.LangFrench,
	"de":                  models.LangGerman,
	"german":              models.LangGerman,
	"it":                  models.LangItalian,
	"italian":             models.LangItalian,
	"pt":                  models.LangPortuguese,
	"portuguese":          models.LangPortuguese,
	"ja":                  models.LangJapanese,
	"jp":                  models.LangJapanese,
	"japanese":            models.LangJapanese,
	"ko":                  models.LangKorean,
	"kr":                  models.LangKorean,
	"korean":              models.LangKorean,
	"ru":                  models.LangRussian,
	"russian":             models.LangRussian,
	"zhs":                 models.LangChineseSimplified,
	"cs":                  models.LangChineseSimplified,
	"chinese simplified":  models.LangChineseSimplified,
	"simplified chinese":  models.LangChineseSimplified,
	"zht":                 models.LangChineseTraditional,
	"ct":                  models.LangChineseTraditional,
	"chinese traditional": models.LangChineseTraditional,
	"traditional chinese": models.LangChineseTraditional,
	"ph":                  models.LangPhyrexian,
	"phyrexian":           models.LangPhyrexian,
}

// NormalizeCondition maps a source condition string to one of the six
// platform grades, defaulting to NEAR_MINT.
func NormalizeCondition(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := conditionAliases[key]; ok {
		return c
	}
	if models.ValidCondition(strings.ToUpper(key)) {
		return strings.ToUpper(key)
	}
	return models.ConditionNearMint
}

// NormalizeLanguage maps a source language string to one of the twelve
// platform codes, defaulting to English.
func NormalizeLanguage(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if l, ok := languageAliases[key]; ok {
		return l
	}
	if models.ValidLanguage(strings.ToUpper(key)) {
		return strings.ToUpper(key)
	}
	return models.LangEnglish
}
