package web

import (
	"net/url"
	"strconv"

	"github.com/JonMunkholm/measurestats/internal/core"
	"github.com/JonMunkholm/measurestats/internal/web/templates"
)

// resultsParams builds the template data for the HTML results page. query is
// the request query; it is reused for the previous/next links.
func resultsParams(page core.SummaryPage, query url.Values) templates.ResultsParams {
	p := templates.ResultsParams{Page: page}
	if page.Page > 1 {
		p.PrevHref = pageHref(query, page.Page-1)
	}
	if page.Page < page.TotalPages() {
		p.NextHref = pageHref(query, page.Page+1)
	}
	return p
}

func pageHref(query url.Values, n int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set(paramPage, strconv.Itoa(n))
	return "?" + q.Encode()
}
