// Package source loads HTML documents for a live.Registry.
//
// A source is named by a URI:
//
//	index.html                   local file
//	file:///srv/site/index.html  local file
//	https://example.com/         fetched with an HTTP GET
//	s3://bucket/path/page.html   fetched with S3 GetObject
//	-                            standard input
//
// Failures are coded errors: L010 when the document cannot be fetched,
// L011 for an unsupported scheme and L012 when the markup cannot be parsed.
package source
