package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/dom"
)

const page = `<html><body><div id="a" class="item"></div></body></html>`

type fakeS3 struct {
	objects map[string]string
	gotKey  string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.gotKey = key
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", key)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"index.html":             "file",
		"./pages/index.html":     "file",
		"/abs/index.html":        "file",
		"file:///tmp/index.html": "file",
		"http://example.com":     "http",
		"HTTPS://example.com/x":  "https",
		"s3://bucket/key.html":   "s3",
		"ftp://host/file":        "ftp",
		"-":                      "stdin",
	}
	for uri, want := range tests {
		if got := Scheme(uri); got != want {
			t.Errorf("Scheme(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, uri := range []string{path, "file://" + path} {
		doc, err := Load(context.Background(), uri)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", uri, err)
		}
		if doc.GetElementByID("a") == nil {
			t.Errorf("Load(%q): element a not found", uri)
		}
	}
	if got := FilePath("file://" + path); got != path {
		t.Errorf("FilePath() = %q, want %q", got, path)
	}
	if !Watchable(path) || Watchable("https://example.com") {
		t.Error("Watchable() misclassified a source")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	if errors.Code(err) != "L010" {
		t.Errorf("error code = %q, want L010 (err: %v)", errors.Code(err), err)
	}
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, page)
	}))
	defer srv.Close()

	doc, err := Load(context.Background(), srv.URL+"/page", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.GetElementByID("a") == nil {
		t.Error("element a not found")
	}

	_, err = Load(context.Background(), srv.URL+"/missing", WithHTTPClient(srv.Client()))
	if errors.Code(err) != "L010" {
		t.Errorf("404 error code = %q, want L010", errors.Code(err))
	}
}

func TestLoadHTTPHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, srv.URL, WithHTTPClient(srv.Client()))
	if errors.Code(err) != "L010" {
		t.Errorf("error code = %q, want L010", errors.Code(err))
	}
}

func TestLoadS3(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"site/pages/index.html": page}}

	doc, err := Load(context.Background(), "s3://site/pages/index.html", WithS3Client(fake))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if fake.gotKey != "site/pages/index.html" {
		t.Errorf("requested %q, want site/pages/index.html", fake.gotKey)
	}
	if doc.GetElementByID("a") == nil {
		t.Error("element a not found")
	}

	tests := []string{"s3://site/nope.html", "s3://site", "s3:///key"}
	for _, uri := range tests {
		if _, err := Load(context.Background(), uri, WithS3Client(fake)); errors.Code(err) != "L010" {
			t.Errorf("Load(%q) code = %q, want L010", uri, errors.Code(err))
		}
	}
}

func TestLoadStdin(t *testing.T) {
	doc, err := Load(context.Background(), "-", WithStdin(strings.NewReader(page)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if dom.TagOf(doc.GetElementByID("a")) != "div" {
		t.Error("element a not parsed from stdin")
	}
}

func TestLoadUnsupportedScheme(t *testing.T) {
	_, err := Load(context.Background(), "ftp://host/page.html")
	if errors.Code(err) != "L011" {
		t.Errorf("error code = %q, want L011", errors.Code(err))
	}
}

func TestLoadSizeLimit(t *testing.T) {
	big := "<p>" + strings.Repeat("x", 4096) + "</p>"

	_, err := Load(context.Background(), "-", WithStdin(strings.NewReader(big)), WithMaxBytes(1024))
	if errors.Code(err) != "L010" {
		t.Errorf("error code = %q, want L010 (err: %v)", errors.Code(err), err)
	}

	if _, err := Load(context.Background(), "-", WithStdin(strings.NewReader(big)), WithMaxBytes(0)); err != nil {
		t.Errorf("unlimited Load() error = %v", err)
	}
}

func TestOpenReturnsRawBytes(t *testing.T) {
	rc, err := Open(context.Background(), "-", WithStdin(strings.NewReader(page)))
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != page {
		t.Errorf("Open() = %q, want the raw page", b)
	}
}
