package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_PresignGet(t *testing.T) {
	store := NewS3Storage("il-central-1", "season-exports", "AKIDEXAMPLE", "secret", "", 10*time.Minute)

	raw, err := store.PresignGet(context.Background(), "exports/2024/abc.xlsx")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, u.Host, "season-exports")
	assert.Contains(t, u.Path, "exports/2024/abc.xlsx")
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3Storage_ObjectURL(t *testing.T) {
	direct := NewS3Storage("il-central-1", "season-exports", "AKIDEXAMPLE", "secret", "", 0)
	assert.Equal(t, "https://season-exports.s3.il-central-1.amazonaws.com/exports/a.xlsx", direct.ObjectURL("exports/a.xlsx"))
	assert.Equal(t, defaultPresignExpiry, direct.presignExpiry)

	cdn := NewS3Storage("il-central-1", "season-exports", "AKIDEXAMPLE", "secret", "https://cdn.example.com", 0)
	assert.Equal(t, "https://cdn.example.com/exports/a.xlsx", cdn.ObjectURL("exports/a.xlsx"))
}
