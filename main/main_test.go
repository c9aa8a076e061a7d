package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModeName(t *testing.T) {
	query, example := "", ""
	vars := map[string]*string{ "Query": &query, "ExampleConfig": &example }

	_, err := getModeName(vars)
	assert.Error(t, err)

	query = "query.ini"
	name, err := getModeName(vars)
	require.NoError(t, err)
	assert.Equal(t, "Query", name)

	example = "Query"
	_, err = getModeName(vars)
	assert.EqualError(t, err, "The following flags were set: "+
		"ExampleConfig, Query, but neighbors only accepts one flag at a time.")
}
