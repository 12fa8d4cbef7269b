package integration

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ruleset"
	"github.com/Ramsey-B/fern/pkg/textclean"
)

const pipelineRules = `{
	"rules": [
		{
			"type_name": "property_cert",
			"must_keywords": ["不动产权", "房屋所有权"],
			"optional_keywords": ["权利人", "共有情况", "坐落", "登记机构"],
			"regex_checks": ["cert_number"],
			"score_weights": {"must_keyword": 2.0, "optional_keyword": 0.5, "regex_hit": 1.0},
			"threshold": 3.0
		},
		{
			"type_name": "purchase_contract",
			"must_keywords": ["买卖合同", "商品房"],
			"optional_keywords": ["出卖人", "买受人", "总价款", "交付"],
			"regex_checks": ["contract_number", "money"],
			"score_weights": {"must_keyword": 2.0, "optional_keyword": 0.5, "regex_hit": 1.0},
			"threshold": 3.0
		}
	]
}`

// rawPages is OCR output the way it actually arrives: broken lines, space
// runs and stray symbols.
var rawPages = []string{
	"不动产权证书\n权利人  张三\n共有情况 单独所有\n坐落 北京市朝阳区幸福\n路100号3号楼5单元801室",
	"证号 京(2023)朝阳区不动产\n权第0012345号\n建筑面积 90.25平方米\n登记机构 北京市规划和自然资源委员会",
}

type pipelineHarness struct {
	classifier *classifier.HybridClassifier
	extractor  *extractor.Extractor
	matcher    *matching.Matcher
}

func newPipelineHarness(t *testing.T) *pipelineHarness {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	rules, err := ruleset.Parse([]byte(pipelineRules))
	require.NoError(t, err)

	dir := t.TempDir()
	samples := classifier.NewSampleStore(dir, logger)
	modelStore := classifier.NewModelStore(dir, logger)
	hybrid := classifier.New(rules, samples, modelStore, classifier.DefaultConfig(), logger)

	matcher := matching.NewMatcher(matching.DefaultConfig(), logger)
	matcher.LoadRecords([]models.PropertyRecord{
		{
			PropertyID:  "P001",
			CertNumber:  "京(2023)朝阳区不动产权第0012345号",
			Address:     "北京市朝阳区幸福路100号",
			HouseNumber: "5-801",
			OwnerName:   "张三",
			Area:        90.25,
		},
		{
			PropertyID:  "P002",
			CertNumber:  "京(2023)朝阳区不动产权第0099999号",
			Address:     "北京市海淀区学院路25号",
			HouseNumber: "3-502",
			OwnerName:   "李四",
			Area:        120,
		},
	})

	return &pipelineHarness{
		classifier: hybrid,
		extractor:  extractor.New(),
		matcher:    matcher,
	}
}

func cleanedPages(raw []string) []models.PageText {
	cleaned := textclean.CleanPages(raw)
	pages := make([]models.PageText, len(cleaned))
	for i, text := range cleaned {
		pages[i] = models.PageText{PageIndex: i, CleanedText: text}
	}
	return pages
}

func joinPages(pages []models.PageText) string {
	text := ""
	for i, page := range pages {
		if i > 0 {
			text += "\n"
		}
		text += page.CleanedText
	}
	return text
}

func TestPipelineEndToEnd(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	pages := cleanedPages(rawPages)
	fullText := joinPages(pages)

	t.Run("cleaning repairs ocr line breaks", func(t *testing.T) {
		assert.Contains(t, fullText, "京(2023)朝阳区不动产权第0012345号")
		assert.Contains(t, fullText, "北京市朝阳区幸福路100号3号楼5单元801室")
	})

	var classification models.ClassificationResult
	t.Run("classifies by rules", func(t *testing.T) {
		classification = h.classifier.ClassifyPages(ctx, pages, classifier.ClassifyOptions{})

		assert.Equal(t, "property_cert", classification.DocType)
		assert.Equal(t, models.MethodRules, classification.Method)
		assert.Equal(t, 1.0, classification.Confidence)
		assert.Len(t, classification.PageTypes, 2)
	})

	var keyInfo map[string]string
	t.Run("extracts key fields", func(t *testing.T) {
		keyInfo = h.extractor.ExtractKeyInfo(fullText)

		assert.Equal(t, "京(2023)朝阳区不动产权第0012345号", keyInfo["cert_number"])
		assert.Equal(t, "90.25平方米", keyInfo["area"])
		assert.NotEmpty(t, keyInfo["address"])
	})

	t.Run("matches the registry and auto matches", func(t *testing.T) {
		result, err := h.matcher.MatchDocument(ctx, keyInfo)
		require.NoError(t, err)

		require.NotEmpty(t, result.AllMatches)
		assert.Equal(t, "P001", result.AllMatches[0].PropertyID)

		require.NotNil(t, result.AutoMatch)
		assert.Equal(t, "P001", result.AutoMatch.PropertyID)
		assert.Equal(t, 1.0, result.AutoMatch.Similarity)
	})

	t.Run("fingerprint is stable across reprocessing", func(t *testing.T) {
		assert.Equal(t, fingerprint.FromPages(pages), fingerprint.FromPages(cleanedPages(rawPages)))
	})
}

func TestPipelineVerifyAndRetrain(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	// The rule table has no tax receipt type, so these land on the fallback
	taxText := "完税凭证 契税 税额5800元 纳税人张三 2023年6月15日"
	result := h.classifier.Classify(ctx, taxText, classifier.ClassifyOptions{})
	assert.Equal(t, models.DocTypeUnknown, result.DocType)
	assert.Equal(t, models.MethodRulesFallback, result.Method)

	// An operator verifies a few documents of the new type
	variants := []string{
		"完税凭证 契税 税额5800元 纳税人张三",
		"税收缴款书 完税 契税 纳税人李四",
		"完税凭证 税额12000元 纳税人王五",
	}
	for _, text := range variants {
		verified := h.classifier.Classify(ctx, text, classifier.ClassifyOptions{
			IsVerified:    true,
			VerifiedLabel: "tax_receipt",
		})
		assert.Equal(t, models.MethodVerified, verified.Method)
	}
	for _, text := range []string{"不动产权证书 权利人", "不动产权证书 坐落"} {
		h.classifier.Classify(ctx, text, classifier.ClassifyOptions{
			IsVerified:    true,
			VerifiedLabel: "property_cert",
		})
	}

	trained, err := h.classifier.Train(ctx, false)
	require.NoError(t, err)
	assert.True(t, trained.Trained)
	assert.Equal(t, 5, trained.SampleCount)
	assert.Equal(t, 2, trained.ClassCount)
	require.True(t, h.classifier.ModelAvailable())

	// The same document now classifies through the model path
	result = h.classifier.Classify(ctx, taxText, classifier.ClassifyOptions{})
	assert.Equal(t, models.MethodModel, result.Method)
	assert.Equal(t, "tax_receipt", result.DocType)

	// Incremental retrain keeps working once more samples arrive
	h.classifier.Classify(ctx, "税收缴款书 税额9000元", classifier.ClassifyOptions{
		IsVerified:    true,
		VerifiedLabel: "tax_receipt",
	})
	retrained, err := h.classifier.Train(ctx, true)
	require.NoError(t, err)
	assert.True(t, retrained.Trained)
	assert.True(t, retrained.Incremental)
	assert.Equal(t, 6, retrained.SampleCount)
}
