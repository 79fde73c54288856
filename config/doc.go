// Package config loads the host runtime configuration from YAML.
//
// Load reads a file, expands ${VAR} references from the environment, applies
// defaults and validates the result. Missing sections keep their defaults, so
// an empty file is a valid configuration:
//
//	pool:
//	  shared_workers: 4
//	  max_dedicated: 256
//	  queue_limit: 4096
//	  parallelism: 8
//	http:
//	  timeout: 30s
//	  max_body_bytes: 67108864
//	  cors_proxy: ""
//	terminal:
//	  cols: 80
//	  rows: 25
//	  detect_size: true
//	cache:
//	  path: ""          # sqlite file; empty keeps modules in memory only
//	  memory_entries: 64
//	registry:
//	  endpoint: ""
//	log:
//	  level: info       # debug, info, warn, error
package config
