// Package scenarios contains the conduit contract test scenarios, and the per-scenario T that
// gives each of them its own interception rules, browser page, and API clients.
//
// Scenarios are grouped with T.Run, the same way subtests are grouped with testing.T; the
// full name of a scenario, such as "mocked feed/has title", is what the -run and -skip
// parameters match against.
package scenarios
