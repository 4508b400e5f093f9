package scenarios

import (
	"github.com/conduit-qa/conduit-contract-tests/framework"
)

// RunTestSuite runs every scenario that the filter selects against the environment and returns
// the results.
func RunTestSuite(
	env Environment,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := newTestScope(c, &env)
		defer t.cancel()

		t.Run("api interception", DoAPIInterceptionTests)
		t.Run("mocked feed", DoMockedFeedTests)
		t.Run("articles", DoArticleTests)
	})
}
