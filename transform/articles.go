// Package transform holds pure functions that rewrite captured API responses before they are
// replayed to the page.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ErrNoArticles means an article list response had no first article to overwrite.
var ErrNoArticles = errors.New("response contains no articles")

// Func rewrites a JSON document.
type Func func([]byte) ([]byte, error)

// OverwriteFirstArticle returns a Func that sets the title and description of the first entry
// in an "articles" list response. Every other field of the document is carried over as is.
//
// A document whose "articles" list is missing or empty is rejected with ErrNoArticles rather
// than passed through, since a test relying on the overwrite could not succeed anyway.
func OverwriteFirstArticle(title, description string) Func {
	return func(data []byte) ([]byte, error) {
		return setFirstArticleFields(data, map[string]ldvalue.Value{
			"title":       ldvalue.String(title),
			"description": ldvalue.String(description),
		})
	}
}

func setFirstArticleFields(data []byte, fields map[string]ldvalue.Value) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, fmt.Errorf("expected a JSON object, got %s", describe(data))
	}
	var articles []json.RawMessage
	if raw, ok := doc["articles"]; !ok || json.Unmarshal(raw, &articles) != nil || len(articles) == 0 {
		return nil, ErrNoArticles
	}
	var first map[string]json.RawMessage
	if err := json.Unmarshal(articles[0], &first); err != nil || first == nil {
		return nil, fmt.Errorf("first article is %s, not an object", describe(articles[0]))
	}

	// Untouched values go back out as the exact bytes that came in, so large integers and
	// exponent-form numbers are not rounded through float64.
	newArticles := ldvalue.ArrayBuild()
	newArticles.Add(rawObject(first, fields))
	for _, a := range articles[1:] {
		newArticles.Add(ldvalue.Raw(a))
	}
	newDoc := rawObject(doc, map[string]ldvalue.Value{"articles": newArticles.Build()})
	return []byte(newDoc.JSONString()), nil
}

// rawObject rebuilds a decoded object with some properties replaced.
func rawObject(obj map[string]json.RawMessage, replace map[string]ldvalue.Value) ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for k, v := range obj {
		if _, ok := replace[k]; !ok {
			b.Set(k, ldvalue.Raw(v))
		}
	}
	for k, v := range replace {
		b.Set(k, v)
	}
	return b.Build()
}

func describe(data []byte) string {
	if !json.Valid(data) {
		return "malformed JSON"
	}
	return ldvalue.Parse(data).Type().String()
}
