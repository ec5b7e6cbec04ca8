package core

import "strings"

// Environment represents the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment normalises the provided value into one of the known environments.
// Unknown values fall back to Development so the application can still start
// with sensible defaults.
func ParseEnvironment(v string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(v))) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}

// Runtime selects how turns reach the service.
type Runtime string

const (
	RuntimeHTTP   Runtime = "http"
	RuntimeLambda Runtime = "lambda"
)

// ResolveRuntime picks the runtime from an explicit setting, or from the
// presence of a Lambda function name when the setting is empty.
func ResolveRuntime(v string, lambdaFunctionName string) Runtime {
	switch Runtime(strings.ToLower(strings.TrimSpace(v))) {
	case RuntimeLambda:
		return RuntimeLambda
	case RuntimeHTTP:
		return RuntimeHTTP
	}
	if lambdaFunctionName != "" {
		return RuntimeLambda
	}
	return RuntimeHTTP
}
