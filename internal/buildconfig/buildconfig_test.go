package buildconfig

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	info := VersionInfo()
	assert.Equal(t, Version(), info["version"])
	assert.Equal(t, Commit(), info["commit"])
	assert.Equal(t, runtime.Version(), info["go_version"])
}

func TestString(t *testing.T) {
	s := String()
	assert.True(t, strings.HasPrefix(s, "prest "+Version()))
	assert.Contains(t, s, Commit())
}
