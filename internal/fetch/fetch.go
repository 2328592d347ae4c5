// Package fetch loads log sources into engine documents;
// handles reading files, URLs and standard input and the caller-side checks
// (extension and size ceiling) that run before a document reaches the engine.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/extract"

	conciter "github.com/sourcegraph/conc/iter"
)

// HTTP client timeout configuration; currently set to reasonable defaults
const HTTPRequestTimeout = 30 * time.Second

// specific timeout thresholds (based on HTTPRequestTimeout)
var (
	HTTPDialTimeout           = HTTPRequestTimeout / 6 // ~17%, max time to wait for network connection
	HTTPTLSTimeout            = HTTPRequestTimeout / 6 // ~17%, max time to wait for TLS handshake
	HTTPResponseHeaderTimeout = HTTPRequestTimeout / 2 // 50%, max time for response headers (usually the longest phase)
)

// stdinName is the display name given to standard input.
const stdinName = "stdin.txt"

// httpClient is a shared HTTP client with appropriate timeouts to prevent indefinite hangs.
// this should be safe for concurrent use across multiple goroutines.
var httpClient = &http.Client{
	Timeout: HTTPRequestTimeout,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: HTTPDialTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   HTTPTLSTimeout,
		ResponseHeaderTimeout: HTTPResponseHeaderTimeout,
	},
}

// Load reads one source into a document. Sources are:
//   - "-" reads from standard input
//   - URLs starting with "http://" or "https://" are fetched via HTTP
//   - everything else is treated as a local file path
//
// A source that fails the extension or size check is not an error: it comes
// back with Valid false and no content so the caller can apply its policy.
func Load(ctx context.Context, source string, opts Options) (engine.Document, error) {
	switch {
	case source == "-":
		return Read(os.Stdin, stdinName, "", opts)
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return loadURL(ctx, source, opts)
	default:
		return loadFile(source, opts)
	}
}

// LoadAll loads sources concurrently, at most opts.Concurrency at a time, and
// returns the documents in source order with duplicate names dropped.
func LoadAll(ctx context.Context, sources []string, opts Options) ([]engine.Document, error) {
	mapper := conciter.Mapper[string, engine.Document]{MaxGoroutines: opts.concurrency()}
	docs, err := mapper.MapErr(sources, func(source *string) (engine.Document, error) {
		if opts.Progress != nil {
			defer opts.Progress()
		}
		return Load(ctx, *source, opts)
	})
	if err != nil {
		return nil, err
	}
	return Dedupe(docs), nil
}

// Read builds a document from r, reading no more than the size ceiling.
// contentType may be empty; HTML is detected from it or from the name.
func Read(r io.Reader, name, contentType string, opts Options) (engine.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, opts.maxBytes()))
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to read %q: %w", name, err)
	}
	return NewDocument(name, data, contentType, opts)
}

// NewDocument validates data under name and converts HTML to text. Invalid
// documents keep their name but carry no content.
func NewDocument(name string, data []byte, contentType string, opts Options) (engine.Document, error) {
	if err := opts.Validate(name, int64(len(data))); err != nil {
		return engine.Document{Name: name, Valid: false}, nil
	}

	content := string(data)
	if IsHTML(name, contentType) {
		text, err := extract.ToText(strings.NewReader(content), opts.HTML)
		if err != nil {
			return engine.Document{}, fmt.Errorf("failed to extract %q: %w", name, err)
		}
		content = text
	}

	return engine.Document{Name: name, Content: content, Valid: true}, nil
}

// IsHTML reports whether a document should be flattened from HTML.
func IsHTML(name, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Dedupe drops documents whose name was already seen, keeping the first.
func Dedupe(docs []engine.Document) []engine.Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]engine.Document, 0, len(docs))
	for _, doc := range docs {
		if _, dup := seen[doc.Name]; dup {
			continue
		}
		seen[doc.Name] = struct{}{}
		out = append(out, doc)
	}
	return out
}

// loadURL retrieves a document over HTTP; the display name is the last path
// segment, or the host plus an extension matching the content type.
func loadURL(ctx context.Context, rawURL string, opts Options) (engine.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to create request for URL %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "tally/0.1")

	resp, err := httpClient.Do(req)
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to fetch URL %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.Document{}, fmt.Errorf("HTTP request failed for URL %q: status %s", rawURL, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	name := urlDisplayName(req.URL, contentType)

	// declared size over the ceiling: no need to download the body
	if resp.ContentLength >= opts.maxBytes() {
		return engine.Document{Name: name, Valid: false}, nil
	}

	return Read(resp.Body, name, contentType, opts)
}

func urlDisplayName(u *url.URL, contentType string) string {
	name := path.Base(u.Path)
	if name != "." && name != "/" && filepath.Ext(name) != "" {
		return name
	}

	if name == "." || name == "/" {
		name = u.Host
	}
	if IsHTML("", contentType) {
		return name + ".html"
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/plain" {
		return name + ".txt"
	}
	return name
}

// loadFile opens a local file, skipping the read when it is over the ceiling
func loadFile(filePath string, opts Options) (engine.Document, error) {
	name := filepath.Base(filePath)

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return engine.Document{}, fmt.Errorf("file %q does not exist", filePath)
	}
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to access file %q: %w", filePath, err)
	}
	if fileInfo.IsDir() {
		return engine.Document{}, fmt.Errorf("%q is a directory", filePath)
	}

	if opts.Validate(name, fileInfo.Size()) != nil {
		return engine.Document{Name: name, Valid: false}, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}
	defer file.Close()

	return Read(file, name, "", opts)
}
