package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.4.0"
	assert.Contains(t, String(), "docnorm 1.4.0")
	assert.Contains(t, String(), "commit: "+GitCommit)
}
