package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	assert.ErrorIs(t, ErrNotOwned, domain.ErrUnauthorized)
	assert.False(t, errors.Is(ErrNotOwned, ErrGenerationNotFound))
	assert.False(t, errors.Is(ErrGenerationNotFound, ErrNotOwned))
}

func TestNewGenerationServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
		message  string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: nil,
		},
		{
			name:     "store not found becomes service sentinel",
			err:      fmt.Errorf("lookup: %w", store.ErrGenerationNotFound),
			expected: ErrGenerationNotFound,
		},
		{
			name:     "ownership sentinel passes through",
			err:      ErrNotOwned,
			expected: ErrNotOwned,
		},
		{
			name:     "other errors are wrapped",
			err:      store.ErrPersistence,
			expected: store.ErrPersistence,
			message:  "generation service get_generation failed: lookup failed: persistence failure",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := NewGenerationServiceError("get_generation", "lookup failed", tc.err)
			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expected)
			if tc.message != "" {
				var serviceErr *GenerationServiceError
				assert.ErrorAs(t, err, &serviceErr)
				assert.Equal(t, tc.message, err.Error())
			}
		})
	}
}
