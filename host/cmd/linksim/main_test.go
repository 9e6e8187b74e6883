package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunExitCodes(t *testing.T) {
	d, o, c, v := *duration, *outages, *configPath, *dump
	t.Cleanup(func() { *duration, *outages, *configPath, *dump = d, o, c, v })
	*duration = 2000
	*dump = false

	assert.Equal(t, 0, run())

	*outages = []string{"500+5000"}
	assert.Equal(t, 2, run(), "receiver still searching at the end")

	*outages = []string{"soon"}
	assert.Equal(t, 1, run())
	*outages = nil

	*configPath = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Equal(t, 1, run())
}
