package handlers

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	c, err := ParseCallback("archive:view:12")
	require.NoError(t, err)
	assert.Equal(t, PrefixArchive, c.Prefix)
	assert.Equal(t, "view", c.Action)
	id, ok := c.ID(0)
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	_, ok = c.ID(1)
	assert.False(t, ok)

	c, err = ParseCallback("user:perm:3:-1001")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, -1001}, c.IDs)

	c, err = ParseCallback("search:run")
	require.NoError(t, err)
	assert.Empty(t, c.IDs)
	assert.Equal(t, "search:run", c.String())
}

func TestParseCallbackMalformed(t *testing.T) {
	bad := []string{
		"",
		"pay",
		"archive",
		"shop:view:1",
		"archive:View:1",
		"archive:view:x",
		"archive:view:1:2:3",
		"archive::1",
		"search:page:" + strings.Repeat("9", 70),
	}
	for _, data := range bad {
		_, err := ParseCallback(data)
		assert.True(t, errors.Is(err, ErrMalformedCallback), data)
	}
}

func TestCallbackDataFitsLimit(t *testing.T) {
	data := callbackData(PrefixUser, "perm", 9223372036854775807, -9223372036854775808)
	assert.LessOrEqual(t, len(data), maxCallbackLen)
	c, err := ParseCallback(data)
	require.NoError(t, err)
	assert.Equal(t, data, c.String())
}
