// AngelaMos | 2026
// database_test.go

package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
)

func TestJitteredDurationStaysWithinASeventh(t *testing.T) {
	base := 70 * time.Minute

	for range 100 {
		got := jitteredDuration(base)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/7)
	}
}

func TestJitteredDurationKeepsNonPositive(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitteredDuration(0))
	assert.Equal(t, -time.Second, jitteredDuration(-time.Second))
}

func TestNewDatabaseRejectsBadURL(t *testing.T) {
	_, err := NewDatabase(context.Background(), config.DatabaseConfig{
		URL: "postgres://%zz",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}
