package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/dom"
)

// DefaultMaxBytes bounds the size of a loaded document.
const DefaultMaxBytes = 32 << 20

// ObjectGetter is the part of the S3 client a source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type options struct {
	httpClient *http.Client
	s3         ObjectGetter
	region     string
	endpoint   string
	maxBytes   int64
	stdin      io.Reader
	logger     *slog.Logger
}

// Option configures Load and Open.
type Option func(*options)

// WithHTTPClient sets the client used for http and https sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithS3Client sets the client used for s3 sources. Without it an anonymous
// client is created for the configured region.
func WithS3Client(c ObjectGetter) Option {
	return func(o *options) {
		o.s3 = c
	}
}

// WithS3Region sets the region of the default S3 client.
func WithS3Region(region string) Option {
	return func(o *options) {
		if region != "" {
			o.region = region
		}
	}
}

// WithS3Endpoint points the default S3 client at an S3-compatible endpoint.
// Path-style addressing is used when an endpoint is set.
func WithS3Endpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithMaxBytes bounds the document size. Zero or less disables the limit.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// WithStdin sets the reader used for the "-" source.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		if r != nil {
			o.stdin = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		region:     "us-east-1",
		maxBytes:   DefaultMaxBytes,
		stdin:      os.Stdin,
		logger:     slog.Default().With("component", "source"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load opens uri and parses it into a document.
func Load(ctx context.Context, uri string, opts ...Option) (*dom.Document, error) {
	o := newOptions(opts)
	rc, err := open(ctx, uri, o)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := io.Reader(rc)
	if o.maxBytes > 0 {
		r = &limitedReader{r: rc, remaining: o.maxBytes, uri: uri}
	}

	start := time.Now()
	doc, err := dom.Parse(r)
	if err != nil {
		if errors.Code(err) != "" {
			return nil, err
		}
		return nil, errors.New("L012").WithDetailf("source %s", uri).Wrap(err)
	}
	o.logger.Debug("document loaded",
		"uri", uri,
		"elements", len(dom.Elements(doc.Root())),
		"duration", time.Since(start),
	)
	return doc, nil
}

// Open returns the raw bytes of uri. The caller closes the reader.
func Open(ctx context.Context, uri string, opts ...Option) (io.ReadCloser, error) {
	return open(ctx, uri, newOptions(opts))
}

// Scheme returns the source kind of uri: "file", "http", "https", "s3" or
// "stdin".
func Scheme(uri string) string {
	if uri == "-" {
		return "stdin"
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// A one-letter scheme is a Windows drive.
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// Watchable reports whether uri names a local file.
func Watchable(uri string) bool {
	return Scheme(uri) == "file"
}

// FilePath returns the local path named by uri.
func FilePath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			return u.Path
		}
	}
	return uri
}

func open(ctx context.Context, uri string, o *options) (io.ReadCloser, error) {
	switch scheme := Scheme(uri); scheme {
	case "stdin":
		return io.NopCloser(o.stdin), nil
	case "file":
		f, err := os.Open(FilePath(uri))
		if err != nil {
			return nil, fetchError(uri, err)
		}
		return f, nil
	case "http", "https":
		return openHTTP(ctx, uri, o)
	case "s3":
		return openS3(ctx, uri, o)
	default:
		return nil, errors.New("L011").WithDetailf("scheme %q in %s", scheme, uri)
	}
}

func openHTTP(ctx context.Context, uri string, o *options) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fetchError(uri, err)
	}
	req.Header.Set("Accept", "text/html, application/xhtml+xml;q=0.9, */*;q=0.5")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fetchError(uri, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fetchError(uri, fmt.Errorf("unexpected status %s", resp.Status))
	}
	return resp.Body, nil
}

func openS3(ctx context.Context, uri string, o *options) (io.ReadCloser, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fetchError(uri, err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fetchError(uri, fmt.Errorf("s3 source needs a bucket and a key"))
	}

	client := o.s3
	if client == nil {
		client = defaultS3Client(o)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fetchError(uri, fmt.Errorf("s3 get object failed: %w", err))
	}
	return out.Body, nil
}

func defaultS3Client(o *options) *s3.Client {
	opts := s3.Options{
		Region:      o.region,
		Credentials: aws.AnonymousCredentials{},
	}
	if o.endpoint != "" {
		opts.BaseEndpoint = aws.String(o.endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func fetchError(uri string, err error) *errors.Error {
	return errors.New("L010").WithDetailf("source %s", uri).Wrap(err)
}

// limitedReader fails once more than remaining bytes were read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	uri       string
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, fetchError(l.uri, fmt.Errorf("document exceeds size limit"))
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return 0, fetchError(l.uri, fmt.Errorf("document exceeds size limit"))
	}
	return n, err
}
