// Package identity turns a patron's article request into a stable identity.
//
// A request names an article by URL or by explicit language, domain and
// title. ExtractFromURL and NewArticleJob normalize that input, Resolver
// asks the wiki for the page id and latest revision, and CanonicalID renders
// the result as "{language}.{domain}.{page_id}.{revision}".
//
// Titles are mutable; page ids and revision ids are not. A canonical id
// therefore names one immutable revision of one page and never contains the
// title.
//
// ERRORS:
//
// Normalization failures are *Error values with a Code. All codes except
// MISSING_INFORMATION are non-fatal: a caller holding explicit fields may
// fall back to them. Lookup failures other than 404 are *FetchError values
// and are not retried. A 404 is logged and leaves the identity unresolved.
package identity
