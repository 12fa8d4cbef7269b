package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactMatch(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 1.0, s.ExactMatch("abc", "abc", true))
	assert.Equal(t, 0.0, s.ExactMatch("abc", "ABC", true))
	assert.Equal(t, 1.0, s.ExactMatch("abc", "ABC", false))
}

func TestLevenshtein(t *testing.T) {
	s := NewScorer()

	t.Run("identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Levenshtein("北京市朝阳区", "北京市朝阳区"))
	})

	t.Run("empty strings", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Levenshtein("", ""))
		assert.Equal(t, 0.0, s.Levenshtein("abc", ""))
	})

	t.Run("single substitution", func(t *testing.T) {
		assert.InDelta(t, 2.0/3.0, s.Levenshtein("abc", "axc"), 0.0001)
	})

	t.Run("distance counts runes not bytes", func(t *testing.T) {
		// One rune apart out of six
		assert.InDelta(t, 5.0/6.0, s.Levenshtein("北京市朝阳区", "北京市海阳区"), 0.0001)
	})

	t.Run("order sensitive", func(t *testing.T) {
		assert.Less(t, s.Levenshtein("5-801", "801-5"), 1.0)
	})
}

func TestLevenshteinDistance(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 0, s.LevenshteinDistance("第0012345号", "第0012345号"))
	assert.Equal(t, 1, s.LevenshteinDistance("第0012345号", "第0012346号"))
	assert.Equal(t, 3, s.LevenshteinDistance("kitten", "sitting"))
}

func TestTokenSortRatio(t *testing.T) {
	s := NewScorer()

	t.Run("reordered cjk segments match exactly", func(t *testing.T) {
		assert.Equal(t, 1.0, s.TokenSortRatio("朝阳区北京市", "北京市朝阳区"))
	})

	t.Run("case and separators are ignored", func(t *testing.T) {
		assert.Equal(t, 1.0, s.TokenSortRatio("ABC 123", "123-abc"))
	})

	t.Run("digit runs stay whole tokens", func(t *testing.T) {
		// 100 and 001 are different tokens, not the same sorted digits
		assert.Less(t, s.TokenSortRatio("幸福路100号", "幸福路001号"), 1.0)
	})

	t.Run("minor insertions stay close", func(t *testing.T) {
		score := s.TokenSortRatio("北京市朝阳区幸福路100号", "北京市朝阳区幸福路100号3号楼")
		assert.Greater(t, score, 0.7)
		assert.Less(t, score, 1.0)
	})
}
