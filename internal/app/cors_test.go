package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"gatherly.dev", "*.gatherly.dev", "localhost:*"}

	cases := []struct {
		origin string
		want   bool
	}{
		{"https://gatherly.dev", true},
		{"https://app.gatherly.dev", true},
		{"http://localhost:3000", true},
		{"http://localhost:5173", true},
		{"https://evil.example.com", false},
		{"https://gatherly.dev.evil.com", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, originAllowed(patterns, tc.origin), tc.origin)
	}
}

func TestOriginAllowedBareHost(t *testing.T) {
	// Some clients send the Origin header without a scheme.
	assert.True(t, originAllowed([]string{"gatherly.dev"}, "gatherly.dev"))
	assert.False(t, originAllowed(nil, "https://gatherly.dev"))
}
