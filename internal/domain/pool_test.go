package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreePoolValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pool    FreePool
		wantErr string
	}{
		{
			name: "valid",
			pool: FreePool{UsedFreeCount: 3, Limit: 100},
		},
		{
			name: "exhausted is still valid",
			pool: FreePool{UsedFreeCount: 100, Limit: 100},
		},
		{
			name:    "negative limit",
			pool:    FreePool{Limit: -1},
			wantErr: "must not be negative",
		},
		{
			name:    "over limit",
			pool:    FreePool{UsedFreeCount: 101, Limit: 100},
			wantErr: "exceeds limit",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.pool.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestFreePoolRemainingNeverNegative(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(97), FreePool{UsedFreeCount: 3, Limit: 100}.Remaining())
	assert.Equal(t, int64(0), FreePool{UsedFreeCount: 100, Limit: 100}.Remaining())
	assert.Equal(t, int64(0), FreePool{UsedFreeCount: 5, Limit: 0}.Remaining())
}
