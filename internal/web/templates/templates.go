// Package templates renders the HTML pages of the report viewer. The
// components live in the .templ files; run `templ generate` after editing them.
package templates

//go:generate templ generate

import (
	"net/url"

	"github.com/a-h/templ"
)

// LogCard summarises one loaded log on the dashboard.
type LogCard struct {
	Name     string
	RunID    string
	Networks int
	Messages int
	Rows     string
	Issues   int
}

// logURL links to the report page of a log.
func logURL(name string) templ.SafeURL {
	return templ.URL("/logs/" + url.PathEscape(name))
}
