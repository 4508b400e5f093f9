package browser

import (
	"encoding/json"
	"fmt"

	"github.com/conduit-qa/conduit-contract-tests/framework"

	"github.com/playwright-community/playwright-go"
)

// tokenStorageKey is where the conduit web app keeps its JWT in local storage.
const tokenStorageKey = "jwtToken"

// Session is one isolated browser context and page. Its methods cover only the interactions
// the conduit scenarios need: navigating, clicking by text or accessible name, filling text
// boxes, asserting on text, and waiting for an API response.
type Session struct {
	context    playwright.BrowserContext
	page       playwright.Page
	assertions playwright.PlaywrightAssertions
	logger     framework.Logger
}

// Close discards the browser context, including its cookies and storage.
func (s *Session) Close() error {
	return s.context.Close()
}

// Authenticate makes the web app treat the session as logged in with the given token, from
// the next navigation on.
func (s *Session) Authenticate(token string) error {
	quoted, _ := json.Marshal(token)
	script := fmt.Sprintf("window.localStorage.setItem(%q, %s);", tokenStorageKey, quoted)
	return s.context.AddInitScript(playwright.Script{Content: playwright.String(script)})
}

func (s *Session) Goto(url string) error {
	s.logger.Printf("Navigating to %s", url)
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (s *Session) ClickText(text string) error {
	s.logger.Printf("Clicking text %q", text)
	return s.page.GetByText(text).First().Click()
}

func (s *Session) ClickButton(name string) error {
	s.logger.Printf("Clicking button %q", name)
	return s.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{
		Name: name,
	}).First().Click()
}

func (s *Session) Fill(textbox, value string) error {
	s.logger.Printf("Filling text box %q", textbox)
	return s.page.GetByRole(*playwright.AriaRoleTextbox, playwright.PageGetByRoleOptions{
		Name: textbox,
	}).Fill(value)
}

func (s *Session) ExpectText(selector, expected string) error {
	return s.assertions.Locator(s.page.Locator(selector)).ToHaveText(expected)
}

func (s *Session) ExpectFirstContains(selector, expected string) error {
	return s.assertions.Locator(s.page.Locator(selector).First()).ToContainText(expected)
}

func (s *Session) ExpectAnyContains(selector, expected string) error {
	return s.assertions.Locator(s.page.Locator(selector).Filter(playwright.LocatorFilterOptions{
		HasText: expected,
	}).First()).ToBeVisible()
}

func (s *Session) ExpectNoneContains(selector, unexpected string) error {
	return s.assertions.Locator(s.page.Locator(selector).Filter(playwright.LocatorFilterOptions{
		HasText: unexpected,
	})).ToHaveCount(0)
}

// AwaitResponse performs an action and waits for the page to receive a response from a URL
// matching the Playwright glob. It returns the response status and body.
func (s *Session) AwaitResponse(urlGlob string, action func() error) (int, []byte, error) {
	resp, err := s.page.ExpectResponse(urlGlob, action)
	if err != nil {
		return 0, nil, err
	}
	body, err := resp.Body()
	if err != nil {
		return resp.Status(), nil, fmt.Errorf("reading response body: %w", err)
	}
	s.logger.Printf("Page received %d from %s", resp.Status(), resp.URL())
	return resp.Status(), body, nil
}
