// Package config loads liveset configuration.
//
// Values are layered, lowest precedence first:
//
//  1. built-in defaults
//  2. liveset.yaml (or liveset.yml) in the working directory, or the file
//     named by --config
//  3. LIVESET_ environment variables
//  4. command-line flags that were set explicitly
//
// # Configuration File Structure
//
//	log:
//	  level: info
//	  format: text
//	serve:
//	  address: ":8080"
//	  shutdown_timeout: 5s
//	source:
//	  max_bytes: 33554432
//	  s3_region: eu-west-1
//	loop:
//	  frame_interval: 16ms
//	watch:
//	  debounce: 100ms
//
// # Environment
//
// Environment variables map to keys by dropping the prefix and replacing
// the first underscore with a dot: LIVESET_SERVE_ADDRESS sets
// serve.address and LIVESET_SOURCE_MAX_BYTES sets source.max_bytes.
package config
