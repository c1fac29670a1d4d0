// Package testutil holds helpers shared by the freddy test suites.
package testutil

import (
	"os"
	"strings"
	"testing"
)

const (
	// IntegrationEnv enables tests that need Docker or a live backend.
	IntegrationEnv = "FREDDY_INTEGRATION_TESTS"
	// RedisURLEnv points integration tests at an existing Redis instead of
	// a container.
	RedisURLEnv = "FREDDY_TEST_REDIS_URL"
)

// RequireIntegration skips t in short mode. In CI, where Docker may be
// missing, it also skips unless FREDDY_INTEGRATION_TESTS is set.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if os.Getenv("CI") != "" && !enabled(os.Getenv(IntegrationEnv)) {
		t.Skipf("integration test skipped in CI (set %s=1 to run)", IntegrationEnv)
	}
}

// RedisURL returns the Redis given by FREDDY_TEST_REDIS_URL, if any.
func RedisURL() (string, bool) {
	url := strings.TrimSpace(os.Getenv(RedisURLEnv))
	return url, url != ""
}

func enabled(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
