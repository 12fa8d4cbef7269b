package matching

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testRecords() []models.PropertyRecord {
	return []models.PropertyRecord{
		{
			PropertyID:  "P001",
			CertNumber:  "京(2023)朝阳区不动产权第0012345号",
			Address:     "北京市朝阳区幸福路100号",
			HouseNumber: "5-801",
			OwnerName:   "张三",
		},
		{
			PropertyID:  "P002",
			CertNumber:  "京(2023)朝阳区不动产权第0099999号",
			Address:     "北京市海淀区学院路25号",
			HouseNumber: "3-502",
			OwnerName:   "李四",
		},
		{
			PropertyID:  "P003",
			CertNumber:  "沪(2019)浦东新区不动产权第7700001号",
			Address:     "上海市浦东新区世纪道88号",
			HouseNumber: "12-1201",
			OwnerName:   "王五",
		},
	}
}

func newTestMatcher(records []models.PropertyRecord) *Matcher {
	m := NewMatcher(DefaultConfig(), testLogger())
	if records != nil {
		m.LoadRecords(records)
	}
	return m
}

func TestMatcherRegistryState(t *testing.T) {
	m := newTestMatcher(nil)

	assert.False(t, m.RegistryLoaded())
	assert.Zero(t, m.RegistrySize())

	_, err := m.MatchByCertNumber("任意证号")
	assert.ErrorIs(t, err, ErrRegistryNotLoaded)

	_, err = m.MatchDocument(context.Background(), map[string]string{"cert_number": "任意证号"})
	assert.ErrorIs(t, err, ErrRegistryNotLoaded)

	m.LoadRecords(testRecords())
	assert.True(t, m.RegistryLoaded())
	assert.Equal(t, 3, m.RegistrySize())
}

func TestMatchByCertNumber(t *testing.T) {
	m := newTestMatcher(testRecords())

	t.Run("exact value matches at full similarity", func(t *testing.T) {
		matches, err := m.MatchByCertNumber("京(2023)朝阳区不动产权第0012345号")
		require.NoError(t, err)
		require.NotEmpty(t, matches)
		assert.Equal(t, "P001", matches[0].PropertyID)
		assert.Equal(t, 1.0, matches[0].Similarity)
	})

	t.Run("one ocr error still clears the threshold", func(t *testing.T) {
		matches, err := m.MatchByCertNumber("京(2023)朝阳区不动产权第0012346号")
		require.NoError(t, err)
		require.NotEmpty(t, matches)
		assert.Equal(t, "P001", matches[0].PropertyID)
		assert.Greater(t, matches[0].Similarity, 0.9)
	})

	t.Run("dissimilar value matches nothing", func(t *testing.T) {
		matches, err := m.MatchByCertNumber("完全无关的字符串")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestMatchByAddress(t *testing.T) {
	m := newTestMatcher(testRecords())

	t.Run("reordered address still matches", func(t *testing.T) {
		matches, err := m.MatchByAddress("朝阳区北京市幸福路100号")
		require.NoError(t, err)
		require.NotEmpty(t, matches)
		assert.Equal(t, "P001", matches[0].PropertyID)
		assert.Equal(t, 1.0, matches[0].Similarity)
	})
}

func TestMatchByHouseNumber(t *testing.T) {
	m := newTestMatcher(testRecords())

	matches, err := m.MatchByHouseNumber("5-801")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "P001", matches[0].PropertyID)
}

func TestMatchFieldTopN(t *testing.T) {
	records := make([]models.PropertyRecord, 5)
	for i := range records {
		records[i] = models.PropertyRecord{
			PropertyID: fmt.Sprintf("P%03d", i+1),
			Address:    "北京市朝阳区幸福路100号",
		}
	}
	m := newTestMatcher(records)

	matches, err := m.MatchByAddress("北京市朝阳区幸福路100号")
	require.NoError(t, err)
	assert.Len(t, matches, DefaultConfig().TopN)
}

func TestMatchDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("merges fields and dedups by property", func(t *testing.T) {
		m := newTestMatcher(testRecords())

		result, err := m.MatchDocument(ctx, map[string]string{
			"cert_number":  "京(2023)朝阳区不动产权第0012345号",
			"address":      "北京市朝阳区幸福路100号",
			"house_number": "5-801",
		})
		require.NoError(t, err)

		// Three field hits collapse to one row for P001
		require.Len(t, result.AllMatches, 1)
		assert.Equal(t, "P001", result.AllMatches[0].PropertyID)
		assert.Equal(t, 1.0, result.AllMatches[0].Similarity)

		require.NotNil(t, result.BestMatch)
		assert.Equal(t, "P001", result.BestMatch.PropertyID)
		require.NotNil(t, result.AutoMatch)
		assert.Equal(t, "P001", result.AutoMatch.PropertyID)

		assert.Len(t, result.FieldMatches, 3)
	})

	t.Run("keeps the best single field similarity per row", func(t *testing.T) {
		m := newTestMatcher(testRecords())

		result, err := m.MatchDocument(ctx, map[string]string{
			"cert_number": "京(2023)朝阳区不动产权第0012346号",
			"address":     "北京市朝阳区幸福路100号",
		})
		require.NoError(t, err)

		require.Len(t, result.AllMatches, 1)
		// The exact address hit outranks the near-miss certificate hit
		assert.Equal(t, "address", result.AllMatches[0].MatchedField)
		assert.Equal(t, 1.0, result.AllMatches[0].Similarity)
	})

	t.Run("missing fields skip their lookup", func(t *testing.T) {
		m := newTestMatcher(testRecords())

		result, err := m.MatchDocument(ctx, map[string]string{
			"house_number": "12-1201",
			"money":        "580万元",
		})
		require.NoError(t, err)

		require.Len(t, result.AllMatches, 1)
		assert.Equal(t, "P003", result.AllMatches[0].PropertyID)
		assert.NotContains(t, result.FieldMatches, "money")
	})

	t.Run("no key fields yields no matches", func(t *testing.T) {
		m := newTestMatcher(testRecords())

		result, err := m.MatchDocument(ctx, map[string]string{})
		require.NoError(t, err)

		assert.Empty(t, result.AllMatches)
		assert.Nil(t, result.BestMatch)
		assert.Nil(t, result.AutoMatch)
	})

	t.Run("dissimilar fields yield no matches", func(t *testing.T) {
		m := newTestMatcher(testRecords())

		result, err := m.MatchDocument(ctx, map[string]string{
			"cert_number": "完全无关的字符串",
		})
		require.NoError(t, err)

		assert.Empty(t, result.AllMatches)
		assert.Nil(t, result.AutoMatch)
	})

	t.Run("merged list is capped at top n", func(t *testing.T) {
		records := make([]models.PropertyRecord, 6)
		for i := range records {
			records[i] = models.PropertyRecord{
				PropertyID:  fmt.Sprintf("P%03d", i+1),
				Address:     "北京市朝阳区幸福路100号",
				HouseNumber: "5-801",
			}
		}
		m := newTestMatcher(records)

		result, err := m.MatchDocument(ctx, map[string]string{
			"address":      "北京市朝阳区幸福路100号",
			"house_number": "5-801",
		})
		require.NoError(t, err)
		assert.Len(t, result.AllMatches, DefaultConfig().TopN)
	})
}
