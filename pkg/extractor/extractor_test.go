package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

const sampleContract = "商品房买卖合同 合同编号：HT-2023-001 " +
	"出卖人某地产公司 买受人张三 身份证号110105194912310021 " +
	"房屋坐落于北京市朝阳区幸福路100号3号楼5单元801室 建筑面积90.25平方米 " +
	"总价款580万元 签订日期2023年6月15日"

func TestExtractAll(t *testing.T) {
	e := New()
	result := e.ExtractAll(sampleContract)

	t.Run("finds every present field", func(t *testing.T) {
		assert.Contains(t, result, "contract_number")
		assert.Contains(t, result, "id_number")
		assert.Contains(t, result, "address")
		assert.Contains(t, result, "area")
		assert.Contains(t, result, "money")
		assert.Contains(t, result, "date")
	})

	t.Run("absent fields are absent", func(t *testing.T) {
		assert.NotContains(t, result, "cert_number")
	})

	t.Run("capture group is the value", func(t *testing.T) {
		require.NotEmpty(t, result["contract_number"])
		for _, c := range result["contract_number"] {
			assert.Equal(t, "HT-2023-001", c.Value)
		}
	})

	t.Run("candidates carry context windows", func(t *testing.T) {
		require.NotEmpty(t, result["id_number"])
		c := result["id_number"][0]
		assert.Equal(t, "110105194912310021", c.Value)
		assert.Contains(t, c.PreContext, "身份证号")
	})

	t.Run("money is normalized", func(t *testing.T) {
		require.NotEmpty(t, result["money"])
		c := result["money"][0]
		assert.Equal(t, "580万元", c.Value)
		assert.Equal(t, "万", c.Unit)
		assert.InDelta(t, 5800000.0, c.Amount, 0.001)
	})
}

func TestExtractKeyInfo(t *testing.T) {
	e := New()
	keyInfo := e.ExtractKeyInfo(sampleContract)

	assert.Equal(t, "HT-2023-001", keyInfo["contract_number"])
	assert.Equal(t, "580万元", keyInfo["money"])
	assert.Equal(t, "2023年6月15日", keyInfo["date"])
	assert.NotContains(t, keyInfo, "cert_number")
}

func TestExtractCertNumber(t *testing.T) {
	e := New()
	text := "不动产权证书 证号京(2023)朝阳区不动产权第0012345号 权利人李四"

	keyInfo := e.ExtractKeyInfo(text)
	assert.Equal(t, "京(2023)朝阳区不动产权第0012345号", keyInfo["cert_number"])
}

func TestSelectBest(t *testing.T) {
	e := New()

	t.Run("no candidates", func(t *testing.T) {
		_, ok := e.SelectBest(nil, FieldMoney)
		assert.False(t, ok)
	})

	t.Run("single candidate wins unconditionally", func(t *testing.T) {
		candidates := []models.Candidate{{Value: "whatever", Start: 9000}}
		value, ok := e.SelectBest(candidates, FieldAddress)
		require.True(t, ok)
		assert.Equal(t, "whatever", value)
	})

	t.Run("money prefers largest amount among competitive candidates", func(t *testing.T) {
		candidates := []models.Candidate{
			{Value: "100万元", Amount: 1000000, Unit: "万", Start: 0},
			{Value: "580万元", Amount: 5800000, Unit: "万", Start: 0},
		}
		value, ok := e.SelectBest(candidates, FieldMoney)
		require.True(t, ok)
		assert.Equal(t, "580万元", value)
	})

	t.Run("money outside the band keeps the score winner", func(t *testing.T) {
		// The far candidate loses the position component entirely, putting it
		// outside the competitive band despite the larger amount.
		candidates := []models.Candidate{
			{Value: "100万元", Amount: 1000000, Unit: "万", Start: 0},
			{Value: "999万元", Amount: 9990000, Unit: "万", Start: 9000},
		}
		value, ok := e.SelectBest(candidates, FieldMoney)
		require.True(t, ok)
		assert.Equal(t, "100万元", value)
	})

	t.Run("address prefers longest among competitive candidates", func(t *testing.T) {
		candidates := []models.Candidate{
			{Value: "北京市朝阳区幸福路100号", Start: 0},
			{Value: "北京市朝阳区幸福路100号3号楼5单元801室", Start: 0},
		}
		value, ok := e.SelectBest(candidates, FieldAddress)
		require.True(t, ok)
		assert.Equal(t, "北京市朝阳区幸福路100号3号楼5单元801室", value)
	})
}

func TestScore(t *testing.T) {
	e := New()

	t.Run("earlier position scores higher", func(t *testing.T) {
		near := models.Candidate{Value: "2023年6月15日", Start: 0}
		far := models.Candidate{Value: "2023年6月15日", Start: 6000}

		assert.Greater(t, e.Score(near, FieldDate), e.Score(far, FieldDate))
	})

	t.Run("context keywords raise the score", func(t *testing.T) {
		bare := models.Candidate{Value: "2023年6月15日", Start: 0}
		keyed := models.Candidate{Value: "2023年6月15日", Start: 0, PreContext: "签订日期"}

		assert.Greater(t, e.Score(keyed, FieldDate), e.Score(bare, FieldDate))
	})

	t.Run("canonical form beats malformed", func(t *testing.T) {
		good := models.Candidate{Value: "2023年6月15日", Start: 0}
		bad := models.Candidate{Value: "2023年6月", Start: 0}

		assert.Greater(t, e.Score(good, FieldDate), e.Score(bad, FieldDate))
	})

	t.Run("score stays within unit range", func(t *testing.T) {
		c := models.Candidate{Value: "2023年6月15日", Start: 0, PreContext: "签订 登记 日期 时间"}
		score := e.Score(c, FieldDate)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}

func TestRuneAlign(t *testing.T) {
	text := "北京市"

	assert.Equal(t, 0, runeAlign(text, -5))
	assert.Equal(t, len(text), runeAlign(text, 100))

	// Offsets inside a multi-byte rune back up to its start
	aligned := runeAlign(text, 4)
	assert.Equal(t, 3, aligned)
	assert.True(t, strings.HasPrefix(text[aligned:], "京"))
}
