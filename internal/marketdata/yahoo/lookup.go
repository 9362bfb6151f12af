package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CompanyName scrapes the quote page for a symbol's display name. Best
// effort: callers treat a failure as "no name available", never as fatal.
func (c *Client) CompanyName(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(symbol)
	quoteURL := fmt.Sprintf("%s/quote/%s/", c.baseURL, url.PathEscape(symbol))

	resp, err := c.httpClient.Get(ctx, quoteURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse HTML failed: %w", err)
	}

	heading := strings.TrimSpace(doc.Find("h1").First().Text())
	if heading == "" {
		return "", fmt.Errorf("no heading found for %s", symbol)
	}

	// Headings read like "Apple Inc. (AAPL)", drop the ticker suffix.
	name := strings.TrimSpace(strings.TrimSuffix(heading, fmt.Sprintf("(%s)", symbol)))
	if name == "" {
		name = heading
	}
	return name, nil
}
