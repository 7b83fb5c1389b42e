package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cardpress/internal/models"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "https://example.com/posts/1", "https://example.com/posts/1"},
		{"uppercase host", "https://Example.COM/posts/1", "https://example.com/posts/1"},
		{"www prefix", "https://www.example.com/posts/1", "https://example.com/posts/1"},
		{"query stripped", "https://example.com/posts/1?utm_source=x&ref=y", "https://example.com/posts/1"},
		{"fragment stripped", "https://example.com/posts/1#section-2", "https://example.com/posts/1"},
		{"trailing slash", "https://example.com/posts/1/", "https://example.com/posts/1"},
		{"root path", "https://example.com/", "https://example.com"},
		{"surrounding space", "  https://example.com/a  ", "https://example.com/a"},
		{"everything at once", "HTTPS://WWW.Example.com/Posts/1/?q=1#frag", "https://example.com/Posts/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalKeyRejectsRelative(t *testing.T) {
	_, err := CanonicalKey("/posts/1")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	_, err = CanonicalKey("://missing-scheme")
	assert.Error(t, err)
}

func TestTextKeyIgnoresWhitespace(t *testing.T) {
	a := TextKey("hello   world\nagain")
	b := TextKey("hello world again")
	assert.Equal(t, a, b)

	c := TextKey("different content")
	assert.NotEqual(t, a, c)
}
