package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

func TestNormalizeCondition(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"NM", models.ConditionNearMint},
		{"Near Mint", models.ConditionNearMint},
		{"nm-mint", models.ConditionNearMint},
		{"EX", models.ConditionLightlyPlayed},
		{"Slightly Played", models.ConditionLightlyPlayed},
		{"VG", models.ConditionModeratelyPlayed},
		{"played", models.ConditionModeratelyPlayed},
		{"HP", models.ConditionHeavilyPlayed},
		{"Poor", models.ConditionDamaged},
		{"LIGHTLY_PLAYED", models.ConditionLightlyPlayed},
		{"  mint  ", models.ConditionMint},
		// Unknown grades fall back to the most common one.
		{"shiny", models.ConditionNearMint},
		{"", models.ConditionNearMint},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeCondition(tc.raw), "raw=%q", tc.raw)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"en", models.LangEnglish},
		{"English", models.LangEnglish},
		{"jp", models.LangJapanese},
		{"Japanese", models.LangJapanese},
		{"zhs", models.LangChineseSimplified},
		{"Traditional Chinese", models.LangChineseTraditional},
		{"ph", models.LangPhyrexian},
		{"DE", models.LangGerman},
		{"klingon", models.LangEnglish},
		{"", models.LangEnglish},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeLanguage(tc.raw), "raw=%q", tc.raw)
	}
}
