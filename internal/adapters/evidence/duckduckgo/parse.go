package duckduckgo

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"golang.org/x/net/html"
)

// parseResults walks the result blocks of the HTML endpoint. Result links
// go through a redirect carrying the target in the uddg parameter.
func parseResults(body []byte, maxResults int) ([]domain.SearchResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	results := make([]domain.SearchResult, 0, maxResults)
	seen := make(map[string]struct{})

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			result, ok := extractResult(n)
			if ok {
				if _, dup := seen[result.URL]; !dup {
					seen[result.URL] = struct{}{}
					results = append(results, result)
				}
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return results, nil
}

func extractResult(block *html.Node) (domain.SearchResult, bool) {
	var result domain.SearchResult
	var href string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				href = attr(n, "href")
				result.Title = textContent(n)
			case hasClass(n, "result__snippet"):
				result.Snippet = textContent(n)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(block)

	target, ok := resolveResultURL(href)
	if !ok || result.Title == "" {
		return domain.SearchResult{}, false
	}
	result.URL = target

	return result, true
}

// resolveResultURL unwraps DuckDuckGo redirects and rejects links that
// point back into DuckDuckGo itself.
func resolveResultURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if isDuckDuckGoHost(parsed.Host) {
		target := parsed.Query().Get("uddg")
		if target == "" {
			return "", false
		}
		parsed, err = url.Parse(target)
		if err != nil {
			return "", false
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	if parsed.Host == "" || isDuckDuckGoHost(parsed.Host) {
		return "", false
	}

	return parsed.String(), true
}

func isDuckDuckGoHost(host string) bool {
	host = strings.ToLower(host)
	return host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com")
}

var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"iframe":   {},
	"svg":      {},
	"nav":      {},
	"header":   {},
	"footer":   {},
	"head":     {},
}

func visibleText(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.Data]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return collapseSpace(b.String()), nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return collapseSpace(b.String())
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}

	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}
