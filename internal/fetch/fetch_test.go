package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestValidate(t *testing.T) {
	opts := fetch.DefaultOptions()

	tests := []struct {
		name      string
		docName   string
		size      int64
		expectErr bool
	}{
		{"plain text", "chat.txt", 10, false},
		{"upper case extension", "CHAT.TXT", 10, false},
		{"log extension", "irc.log", 10, false},
		{"html export", "export.html", 10, false},
		{"no extension", "README", 10, true},
		{"wrong extension", "photo.png", 10, true},
		{"just under ceiling", "big.txt", fetch.DefaultMaxBytes - 1, false},
		{"at ceiling", "big.txt", fetch.DefaultMaxBytes, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := opts.Validate(tt.docName, tt.size)
			if tt.expectErr {
				assert.ErrorIs(t, err, fetch.ErrInvalidDocument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	opts := fetch.DefaultOptions()

	p := writeFile(t, dir, "a.txt", "Alice: hello\n")
	doc, err := fetch.Load(context.Background(), p, opts)
	require.NoError(t, err)
	assert.Equal(t, engine.Document{Name: "a.txt", Content: "Alice: hello\n", Valid: true}, doc)

	p = writeFile(t, dir, "notes.md", "Alice: hello\n")
	doc, err = fetch.Load(context.Background(), p, opts)
	require.NoError(t, err)
	assert.False(t, doc.Valid)
	assert.Empty(t, doc.Content)

	opts.MaxBytes = 5
	p = writeFile(t, dir, "long.txt", "Alice: far too long\n")
	doc, err = fetch.Load(context.Background(), p, opts)
	require.NoError(t, err)
	assert.Equal(t, "long.txt", doc.Name)
	assert.False(t, doc.Valid)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := fetch.Load(context.Background(), "/path/that/does/not/exist.txt", fetch.DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	_, err = fetch.Load(context.Background(), t.TempDir(), fetch.DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestLoadHTMLFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "export.html", "<p><b>Alice</b>: hi there</p><p>Bob: yo</p>")

	doc, err := fetch.Load(context.Background(), p, fetch.DefaultOptions())
	require.NoError(t, err)
	require.True(t, doc.Valid)
	assert.Equal(t, "Alice: hi there\nBob: yo", doc.Content)
}

func TestLoadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logs/day1.txt":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("Alice: from http\n"))
		case "/export":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<p>Bob: from html</p>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	opts := fetch.DefaultOptions()

	doc, err := fetch.Load(context.Background(), server.URL+"/logs/day1.txt", opts)
	require.NoError(t, err)
	assert.Equal(t, engine.Document{Name: "day1.txt", Content: "Alice: from http\n", Valid: true}, doc)

	doc, err = fetch.Load(context.Background(), server.URL+"/export", opts)
	require.NoError(t, err)
	assert.Equal(t, "export.html", doc.Name)
	assert.Equal(t, "Bob: from html", doc.Content)

	_, err = fetch.Load(context.Background(), server.URL+"/missing.txt", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLoadURLTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	opts := fetch.DefaultOptions()
	opts.MaxBytes = 16

	doc, err := fetch.Load(context.Background(), server.URL+"/big.txt", opts)
	require.NoError(t, err)
	assert.False(t, doc.Valid)
}

func TestLoadAllKeepsOrderAndDedupes(t *testing.T) {
	dir := t.TempDir()
	var sources []string
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		sources = append(sources, writeFile(t, dir, name, name+": body\n"))
	}
	// the same file twice collapses to one document
	sources = append(sources, sources[1])

	opts := fetch.DefaultOptions()
	opts.Concurrency = 2

	docs, err := fetch.LoadAll(context.Background(), sources, opts)
	require.NoError(t, err)

	var names []string
	for _, d := range docs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"c.txt", "a.txt", "b.txt"}, names)
}

func TestLoadAllError(t *testing.T) {
	dir := t.TempDir()
	sources := []string{writeFile(t, dir, "ok.txt", "A: b\n"), filepath.Join(dir, "gone.txt")}

	_, err := fetch.LoadAll(context.Background(), sources, fetch.DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone.txt")
}

func TestCheckAllAndValidOnly(t *testing.T) {
	docs := []engine.Document{
		{Name: "a.txt", Valid: true},
		{Name: "b.png", Valid: false},
		{Name: "c.txt", Valid: true},
	}

	err := fetch.CheckAll(docs)
	require.ErrorIs(t, err, fetch.ErrInvalidDocument)
	assert.Contains(t, err.Error(), "b.png")

	valid, dropped := fetch.ValidOnly(docs)
	assert.Len(t, valid, 2)
	assert.Equal(t, []string{"b.png"}, dropped)

	assert.NoError(t, fetch.CheckAll(valid))
}

func TestIsHTML(t *testing.T) {
	assert.True(t, fetch.IsHTML("x.html", ""))
	assert.True(t, fetch.IsHTML("x.HTM", ""))
	assert.True(t, fetch.IsHTML("x", "text/html; charset=utf-8"))
	assert.False(t, fetch.IsHTML("x.txt", "text/plain"))
}
