package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool() *SamplePool {
	texts := []string{
		"不动产权证书 权利人张三 登记机构",
		"不动产权证书 权利人李四 共有情况",
		"不动产权证书 坐落朝阳区 登记机构",
		"商品房买卖合同 出卖人 总价款",
		"商品房买卖合同 买受人 交付",
		"商品房买卖合同 总价款 出卖人",
	}
	labels := []string{
		"property_cert", "property_cert", "property_cert",
		"purchase_contract", "purchase_contract", "purchase_contract",
	}
	return &SamplePool{Texts: texts, Labels: labels, Count: len(texts)}
}

func TestTokenize(t *testing.T) {
	t.Run("cjk bigrams", func(t *testing.T) {
		assert.Equal(t, []string{"不动", "动产"}, tokenize("不动产"))
	})

	t.Run("ascii words lowered", func(t *testing.T) {
		assert.Equal(t, []string{"ht2023", "001"}, tokenize("HT2023 001"))
	})

	t.Run("mixed text breaks bigram runs", func(t *testing.T) {
		tokens := tokenize("合同HT号")
		assert.Contains(t, tokens, "ht")
		assert.NotContains(t, tokens, "同号")
	})
}

func TestFitTransform(t *testing.T) {
	texts := []string{"不动产证书", "买卖合同"}
	transform := FitTransform(texts)

	t.Run("deterministic vocabulary", func(t *testing.T) {
		again := FitTransform(texts)
		assert.Equal(t, transform.Vocabulary, again.Vocabulary)
		assert.Equal(t, transform.IDF, again.IDF)
	})

	t.Run("vector is normalized", func(t *testing.T) {
		vec := transform.Apply("不动产证书")
		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		assert.InDelta(t, 1.0, norm, 0.0001)
	})

	t.Run("unknown tokens drop out", func(t *testing.T) {
		vec := transform.Apply("完税凭证")
		for _, v := range vec {
			assert.Zero(t, v)
		}
	})
}

func TestTrain(t *testing.T) {
	t.Run("insufficient samples", func(t *testing.T) {
		_, err := Train(&SamplePool{Texts: []string{"单独样本"}, Labels: []string{"a"}, Count: 1})
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})

	t.Run("trains and predicts", func(t *testing.T) {
		model, err := Train(testPool())
		require.NoError(t, err)

		assert.Equal(t, []string{"property_cert", "purchase_contract"}, model.Classes)
		assert.NotEmpty(t, model.Members)

		probs := model.PredictProba("不动产权证书 权利人")
		class, confidence := model.Best(probs)
		assert.Equal(t, "property_cert", class)
		assert.Greater(t, confidence, 0.5)

		probs = model.PredictProba("商品房买卖合同 总价款")
		class, _ = model.Best(probs)
		assert.Equal(t, "purchase_contract", class)
	})

	t.Run("single label pool trains one member", func(t *testing.T) {
		pool := &SamplePool{
			Texts:  []string{"完税凭证 契税", "完税凭证 税额"},
			Labels: []string{"tax_receipt", "tax_receipt"},
			Count:  2,
		}
		model, err := Train(pool)
		require.NoError(t, err)
		assert.Len(t, model.Members, 1)
		assert.Equal(t, []string{"tax_receipt"}, model.Classes)
	})
}

func TestTrainIncremental(t *testing.T) {
	t.Run("reuses the existing transform", func(t *testing.T) {
		first, err := Train(testPool())
		require.NoError(t, err)

		pool := testPool()
		pool.Texts = append(pool.Texts, "完税凭证 契税 税额")
		pool.Labels = append(pool.Labels, "tax_receipt")
		pool.Count = len(pool.Texts)

		second, err := TrainIncremental(first, pool)
		require.NoError(t, err)

		assert.Same(t, first.Transform, second.Transform)
		assert.Contains(t, second.Classes, "tax_receipt")
	})

	t.Run("falls back to full train without an existing model", func(t *testing.T) {
		model, err := TrainIncremental(nil, testPool())
		require.NoError(t, err)
		assert.NotNil(t, model.Transform)
	})

	t.Run("insufficient samples", func(t *testing.T) {
		_, err := TrainIncremental(nil, &SamplePool{})
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})
}

func TestModelBest(t *testing.T) {
	model := &Model{Classes: []string{"a", "b", "c"}}

	t.Run("picks the arg max", func(t *testing.T) {
		class, prob := model.Best(map[string]float64{"a": 0.1, "b": 0.7, "c": 0.2})
		assert.Equal(t, "b", class)
		assert.Equal(t, 0.7, prob)
	})

	t.Run("ties resolve to the first class in order", func(t *testing.T) {
		class, _ := model.Best(map[string]float64{"a": 0.5, "b": 0.5})
		assert.Equal(t, "a", class)
	})
}

func TestModelStoreRoundTrip(t *testing.T) {
	logger := testLogger()
	store := NewModelStore(t.TempDir(), logger)

	t.Run("empty store loads nil", func(t *testing.T) {
		model, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, model)
	})

	t.Run("save then load", func(t *testing.T) {
		trained, err := Train(testPool())
		require.NoError(t, err)
		require.NoError(t, store.Save(trained))

		loaded, err := store.Load()
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, trained.Classes, loaded.Classes)
		assert.Len(t, loaded.Members, len(trained.Members))

		probs := loaded.PredictProba("不动产权证书")
		class, _ := loaded.Best(probs)
		assert.Equal(t, "property_cert", class)
	})
}
