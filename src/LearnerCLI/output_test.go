package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

func TestParseID(t *testing.T) {
	id, err := parseID("course id", "7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "0", "-3", "seven"} {
		_, err := parseID("course id", bad)
		assert.ErrorIs(t, err, apierr.ErrValidation, bad)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Go for ...", truncate("Go for Backend Engineers", 10))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "10:00", formatMinutes(600))
	assert.Equal(t, "1:05", formatMinutes(65.9))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"login"}, {"whoami"}, {"courses", "list"}, {"enrolled"},
		{"progress", "show"}, {"progress", "update"}, {"forum", "comments"}, {"profile", "update"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
