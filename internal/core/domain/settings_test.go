package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoogleSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings GoogleSettings
		expected bool
	}{
		{
			name:     "client id and secret",
			settings: GoogleSettings{ClientID: "id", ClientSecret: "secret"},
			expected: true,
		},
		{
			name:     "token url alone is not enough",
			settings: GoogleSettings{TokenURL: "http://localhost/token"},
			expected: false,
		},
		{
			name:     "missing secret",
			settings: GoogleSettings{ClientID: "id"},
			expected: false,
		},
		{
			name:     "missing client id",
			settings: GoogleSettings{ClientSecret: "secret"},
			expected: false,
		},
		{
			name:     "empty",
			settings: GoogleSettings{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}
