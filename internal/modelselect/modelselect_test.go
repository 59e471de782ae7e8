package modelselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect_SecurityKeywordForcesHighPlus(t *testing.T) {
	tier := Select("Review this design for GDPR compliance", "", 0)
	assert.Equal(t, TierHighPlus, tier)
}

func TestSelect_ArchitectureKeywordForcesHigh(t *testing.T) {
	tier := Select("Design a distributed microservices architecture", "", 0)
	assert.Equal(t, TierHigh, tier)
}

func TestSelect_LargeContextForcesHigh(t *testing.T) {
	tier := Select("anything", "", 1_500_000)
	assert.Equal(t, TierHigh, tier)
}

func TestSelect_MasterRoleForcesHigh(t *testing.T) {
	tier := Select("small task", "master", 0)
	assert.Equal(t, TierHigh, tier)
}

func TestSelect_SecurityRoleForcesHighPlus(t *testing.T) {
	tier := Select("small task", "reviewer_security", 0)
	assert.Equal(t, TierHighPlus, tier)
}

func TestSelect_QuickRoleForcesLow(t *testing.T) {
	tier := Select("longer description text that is otherwise neutral", "quick_suggestion", 0)
	assert.Equal(t, TierLow, tier)
}

func TestSelect_LongDescriptionForcesHigh(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "word "
	}
	tier := Select(long, "", 0)
	assert.Equal(t, TierHigh, tier)
}

func TestSelect_ShortSimpleKeywordForcesLow(t *testing.T) {
	tier := Select("quick review summary", "", 0)
	assert.Equal(t, TierLow, tier)
}

func TestSelect_DefaultIsMid(t *testing.T) {
	tier := Select("build a feature", "", 0)
	assert.Equal(t, TierMid, tier)
}

func TestValidateContext(t *testing.T) {
	assert.True(t, ValidateContext(TierHigh, 500_000))
	assert.False(t, ValidateContext(TierLow, 2_000_000))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 2, EstimateTokens("12345678"))
}
