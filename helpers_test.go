package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractResumeText(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		text, err := ExtractResumeText(mimeText, []byte("Go developer"))
		require.NoError(t, err)
		assert.Equal(t, "Go developer", text)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := ExtractResumeText("image/png", []byte{0x89})
		assert.EqualError(t, err, "unsupported file type: image/png")
	})

	t.Run("broken pdf", func(t *testing.T) {
		_, err := ExtractResumeText(mimePDF, []byte("definitely not a pdf"))
		assert.Error(t, err)
	})

	t.Run("broken docx", func(t *testing.T) {
		_, err := ExtractResumeText(mimeDOCX, []byte("not a zip"))
		assert.Error(t, err)
	})
}

func TestDetectMime(t *testing.T) {
	assert.Equal(t, mimePDF, DetectMime("cv.bin", "application/pdf", nil))
	assert.Equal(t, mimePDF, DetectMime("CV.PDF", "application/octet-stream", nil))
	assert.Equal(t, mimeDOCX, DetectMime("cv.docx", "", nil))
	assert.Equal(t, mimeText, DetectMime("cv.txt", "", nil))
	assert.Equal(t, mimeText, DetectMime("notes", "text/plain; charset=utf-8", nil))
	assert.Equal(t, mimePDF, DetectMime("upload", "", []byte("%PDF-1.4 rest")))
}

func TestCleanJson(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJson("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "plain", CleanJson("  plain  "))
}

func TestRetry(t *testing.T) {
	calls := 0
	got, err := retry(3, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	_, err = retry(2, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
