package unfurl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goliatone/go-embed/pkg/interfaces"
)

// PlayerURL returns the first player link of resp, falling back to the src
// of the first iframe in the returned markup. It returns "" when neither is
// present.
func PlayerURL(resp interfaces.UnfurlResponse) string {
	for _, link := range resp.Links.Player {
		if href := strings.TrimSpace(link.Href); href != "" {
			return href
		}
	}
	return IframeSource(resp.HTML)
}

// IframeSource returns the src attribute of the first iframe in markup.
func IframeSource(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("iframe[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
