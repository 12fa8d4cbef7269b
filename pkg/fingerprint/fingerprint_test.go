package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestFromText(t *testing.T) {
	assert.Len(t, FromText(""), 64)
	assert.Equal(t, FromText("不动产权证书"), FromText("不动产权证书"))
	assert.NotEqual(t, FromText("不动产权证书"), FromText("买卖合同"))
}

func TestFromPages(t *testing.T) {
	pages := []models.PageText{
		{PageIndex: 0, CleanedText: "第一页"},
		{PageIndex: 1, CleanedText: "第二页"},
	}

	t.Run("stable for identical input", func(t *testing.T) {
		assert.Equal(t, FromPages(pages), FromPages(pages))
	})

	t.Run("page order matters", func(t *testing.T) {
		reversed := []models.PageText{
			{PageIndex: 0, CleanedText: "第二页"},
			{PageIndex: 1, CleanedText: "第一页"},
		}
		assert.NotEqual(t, FromPages(pages), FromPages(reversed))
	})

	t.Run("ocr confidence does not matter", func(t *testing.T) {
		rescored := []models.PageText{
			{PageIndex: 0, CleanedText: "第一页", Confidence: 0.42},
			{PageIndex: 1, CleanedText: "第二页", Confidence: 0.99},
		}
		assert.Equal(t, FromPages(pages), FromPages(rescored))
	})

	t.Run("page boundaries matter", func(t *testing.T) {
		joined := []models.PageText{
			{PageIndex: 0, CleanedText: "第一页第二页"},
		}
		assert.NotEqual(t, FromPages(pages), FromPages(joined))
	})
}

func TestHasChanged(t *testing.T) {
	current := FromPages([]models.PageText{{PageIndex: 0, CleanedText: "内容"}})
	updated := FromPages([]models.PageText{{PageIndex: 0, CleanedText: "改动"}})

	assert.False(t, HasChanged(current, current))
	assert.True(t, HasChanged(current, updated))
}
