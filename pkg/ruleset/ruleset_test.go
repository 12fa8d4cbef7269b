package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

const validRuleJSON = `{
	"rules": [
		{
			"type_name": "property_cert",
			"must_keywords": ["不动产权", "房屋所有权"],
			"optional_keywords": ["权利人", "坐落"],
			"regex_checks": ["cert_number"],
			"score_weights": {"must_keyword": 2.0, "optional_keyword": 0.5, "regex_hit": 1.0},
			"threshold": 3.0
		},
		{
			"type_name": "tax_receipt",
			"must_keywords": ["完税"],
			"regex_checks": ["money", "date"],
			"score_weights": {"must_keyword": 2.0, "optional_keyword": 0.5, "regex_hit": 1.0},
			"threshold": 3.0
		}
	]
}`

func TestParse(t *testing.T) {
	t.Run("valid rule set", func(t *testing.T) {
		rs, err := Parse([]byte(validRuleJSON))
		require.NoError(t, err)
		assert.True(t, rs.Available)
		assert.Len(t, rs.Rules, 2)
		assert.Equal(t, "property_cert", rs.Rules[0].TypeName)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Parse([]byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("empty rule list", func(t *testing.T) {
		_, err := Parse([]byte(`{"rules": []}`))
		assert.Error(t, err)
	})

	t.Run("missing type name fails validation", func(t *testing.T) {
		_, err := Parse([]byte(`{"rules": [{"threshold": 1.0}]}`))
		assert.Error(t, err)
	})

	t.Run("unknown regex check name", func(t *testing.T) {
		_, err := Parse([]byte(`{"rules": [{"type_name": "x", "regex_checks": ["no_such_pattern"], "threshold": 1.0}]}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no_such_pattern")
	})

	t.Run("invalid keyword pattern", func(t *testing.T) {
		_, err := Parse([]byte(`{"rules": [{"type_name": "x", "must_keywords": ["[unclosed"], "threshold": 1.0}]}`))
		assert.Error(t, err)
	})
}

func TestRuleHits(t *testing.T) {
	rs, err := Parse([]byte(validRuleJSON))
	require.NoError(t, err)

	rule := &rs.Rules[0]
	text := "不动产权证书 权利人张三 坐落北京市 证号京(2023)朝阳区不动产权第0012345号"

	assert.Equal(t, 1, rule.CountMustHits(text))
	assert.Equal(t, 2, rule.CountOptionalHits(text))
	assert.Equal(t, 1, rule.CountRegexHits(text))
	assert.True(t, rule.HasMustKeywords())

	assert.Equal(t, 0, rule.CountMustHits("无关文本"))
}

func TestDefault(t *testing.T) {
	rs := Default()

	assert.False(t, rs.Available)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, "unknown", rs.Rules[0].TypeName)
	assert.Zero(t, rs.Rules[0].Threshold)
	assert.False(t, rs.Rules[0].HasMustKeywords())
}

func TestLoad(t *testing.T) {
	t.Run("loads valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.json")
		require.NoError(t, os.WriteFile(path, []byte(validRuleJSON), 0o644))

		rs := Load(path, testLogger())
		assert.True(t, rs.Available)
		assert.Len(t, rs.Rules, 2)
	})

	t.Run("missing file degrades to default", func(t *testing.T) {
		rs := Load(filepath.Join(t.TempDir(), "missing.json"), testLogger())
		assert.False(t, rs.Available)
	})

	t.Run("corrupt file degrades to default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.json")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

		rs := Load(path, testLogger())
		assert.False(t, rs.Available)
	})
}

func TestGetPattern(t *testing.T) {
	assert.NotNil(t, GetPattern("cert_number"))
	assert.NotNil(t, GetPattern("money"))
	assert.Nil(t, GetPattern("nope"))

	names := PatternNames()
	assert.Contains(t, names, "id_number")
	assert.Contains(t, names, "address")
}
