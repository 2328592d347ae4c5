// Package extract flattens HTML chat exports into line-oriented plain text.
//
// The tokenizer expects one "user: message" per line, so every mode here aims
// to put each message on its own line with inline markup removed.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Options selects the extraction mode.
type Options struct {
	// Selector, when set, makes every matched element one output line.
	Selector string
	// Readable runs go-readability main-content extraction before conversion.
	Readable bool
	// BaseURL gives readability context for relative links; may be nil.
	BaseURL *url.URL
}

// ToText extracts line-oriented text from HTML content.
func ToText(content io.Reader, opts Options) (string, error) {
	if opts.Selector != "" {
		return extractWithSelector(content, opts.Selector)
	}
	if opts.Readable {
		return extractMainContent(content, opts.BaseURL)
	}

	htmlBytes, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read HTML content: %w", err)
	}
	return convertToText(string(htmlBytes))
}

// extractMainContent uses go-readability to keep only the main content block
func extractMainContent(content io.Reader, baseURL *url.URL) (string, error) {
	if baseURL == nil {
		baseURL = &url.URL{}
	}

	article, err := readability.FromReader(content, baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract main content: %w", err)
	}

	return convertToText(article.Content)
}

// extractWithSelector writes the collapsed text of each matching element as one line
func extractWithSelector(content io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("no elements found matching selector: %s", selector)
	}

	var lines []string
	selection.Each(func(i int, s *goquery.Selection) {
		if line := strings.Join(strings.Fields(s.Text()), " "); line != "" {
			lines = append(lines, line)
		}
	})

	return strings.Join(lines, "\n"), nil
}

// unwrap keeps an element's text content and drops its markup
func unwrap(content string, selec *goquery.Selection, opt *md.Options) *string {
	return &content
}

// convertToText converts HTML through html-to-markdown with inline formatting,
// links and list markers stripped, so names keep their literal spelling.
func convertToText(htmlString string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})

	converter.AddRules(
		md.Rule{
			Filter:      []string{"strong", "b", "em", "i", "code", "span", "a"},
			Replacement: unwrap,
		},
		md.Rule{
			Filter: []string{"li"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				line := strings.TrimSpace(content) + "\n"
				return &line
			},
		},
	)

	text, err := converter.ConvertString(htmlString)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to text: %w", err)
	}

	// collapse the blank lines between paragraphs
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n"), nil
}
