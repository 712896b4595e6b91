package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntList(t *testing.T) {
	got, err := parseIntList(" 1, 3,5 ,")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, got)

	got, err = parseIntList("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseIntList("1,x")
	assert.Error(t, err)
}
