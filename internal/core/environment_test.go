package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Production, ParseEnvironment(" Production "))
	assert.Equal(t, Staging, ParseEnvironment("staging"))
	assert.Equal(t, Development, ParseEnvironment("qa"))
	assert.True(t, ParseEnvironment("production").IsProduction())
}

func TestResolveRuntime(t *testing.T) {
	assert.Equal(t, RuntimeLambda, ResolveRuntime("lambda", ""))
	assert.Equal(t, RuntimeHTTP, ResolveRuntime("http", "askAQuestion-genAI"))
	assert.Equal(t, RuntimeLambda, ResolveRuntime("", "askAQuestion-genAI"))
	assert.Equal(t, RuntimeHTTP, ResolveRuntime("", ""))
}
