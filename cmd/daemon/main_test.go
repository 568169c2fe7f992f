package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAsOf(t *testing.T) {
	asOf, err := parseAsOf("2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC), asOf)

	now, err := parseAsOf("")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), now, time.Minute)

	// A typo must surface, not quietly become "today".
	_, err = parseAsOf("30-08-2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}
