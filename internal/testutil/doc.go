// Package testutil provides shared test fixtures.
//
// FakeWiki stands in for the MediaWiki REST API so that page-id resolution
// can be tested without network access.
package testutil
