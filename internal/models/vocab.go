package models

// Condition grades form a closed vocabulary. Adapters normalize whatever the
// source reports onto these six values.
const (
	ConditionMint             = "MINT"
	ConditionNearMint         = "NEAR_MINT"
	ConditionLightlyPlayed    = "LIGHTLY_PLAYED"
	ConditionModeratelyPlayed = "MODERATELY_PLAYED"
	ConditionHeavilyPlayed    = "HEAVILY_PLAYED"
	ConditionDamaged          = "DAMAGED"
)

// Language codes, twelve in total.
const (
	LangEnglish            = "EN"
	LangSpanish            = "ES"
	LangFrench             = "FR"
	LangGerman             = "DE"
	LangItalian            = "IT"
	LangPortuguese         = "PT"
	LangJapanese           = "JA"
	LangKorean             = "KO"
	LangRussian            = "RU"
	LangChineseSimplified  = "ZHS"
	LangChineseTraditional = "ZHT"
	LangPhyrexian          = "PH"
)

// Conditions lists every valid condition grade.
var Conditions = []string{
	ConditionMint,
	ConditionNearMint,
	ConditionLightlyPlayed,
	ConditionModeratelyPlayed,
	ConditionHeavilyPlayed,
	ConditionDamaged,
}

// Languages lists every valid language code.
var Languages = []string{
	LangEnglish, LangSpanish, LangFrench, LangGerman, LangItalian,
	LangPortuguese, LangJapanese, LangKorean, LangRussian,
	LangChineseSimplified, LangChineseTraditional, LangPhyrexian,
}

// ValidCondition reports whether c is one of the six condition grades.
func ValidCondition(c string) bool {
	for _, v := range Conditions {
		if v == c {
			return true
		}
	}
	return false
}

// ValidLanguage reports whether l is one of the twelve language codes.
func ValidLanguage(l string) bool {
	for _, v := range Languages {
		if v == l {
			return true
		}
	}
	return false
}
