package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmission(t *testing.T) {
	t.Run("inline pages", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"tenant_id": "t1",
			"file_name": "contract.pdf",
			"pages": [{"page_index": 0, "cleaned_text": "商品房买卖合同"}]
		}`)}

		require.NoError(t, msg.ParseSubmission())
		require.NotNil(t, msg.Submission)
		assert.Equal(t, "contract.pdf", msg.Submission.FileName)
		assert.Len(t, msg.Submission.Pages, 1)
	})

	t.Run("file path only", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"tenant_id": "t1",
			"file_name": "scan.pdf",
			"file_path": "/uploads/scan.pdf"
		}`)}

		require.NoError(t, msg.ParseSubmission())
		assert.Equal(t, "/uploads/scan.pdf", msg.Submission.FilePath)
	})

	t.Run("neither pages nor path", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"tenant_id": "t1", "file_name": "x.pdf"}`)}
		assert.Error(t, msg.ParseSubmission())
	})

	t.Run("invalid json", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{bad`)}
		assert.Error(t, msg.ParseSubmission())
	})
}

func TestMessageIdentity(t *testing.T) {
	t.Run("body wins over headers", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:     "key-doc",
			Headers: map[string]string{"tenant_id": "header-tenant"},
			Value:   []byte(`{"tenant_id": "body-tenant", "document_id": "body-doc", "file_path": "/f"}`),
		}
		require.NoError(t, msg.ParseSubmission())

		assert.Equal(t, "body-tenant", msg.GetTenantID())
		assert.Equal(t, "body-doc", msg.GetDocumentID())
	})

	t.Run("headers and key fill the gaps", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:     "key-doc",
			Headers: map[string]string{"tenant_id": "header-tenant"},
			Value:   []byte(`{"file_path": "/f"}`),
		}
		require.NoError(t, msg.ParseSubmission())

		assert.Equal(t, "header-tenant", msg.GetTenantID())
		assert.Equal(t, "key-doc", msg.GetDocumentID())
	})
}
