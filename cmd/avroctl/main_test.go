package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistersAllSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["create-schema"])
	assert.True(t, names["generate-code"])
	assert.True(t, names["get-schema"])
	assert.True(t, names["test-schema"])
}
