// Package config handles configuration loading for coven-workspace.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by extension) with
// environment variable expansion. Missing values fall back to defaults, so a
// missing file is not an error for the client (see LoadOrDefault).
//
// # Configuration File
//
// Default locations (in order):
//
//  1. --config flag
//  2. Path from COVEN_WORKSPACE_CONFIG environment variable
//  3. ~/.config/coven/workspace.yaml
//
// # Environment Variable Expansion
//
//	devserver:
//	  jwt_secret: "${WORKSPACE_JWT_SECRET}"
//
// # Configuration Sections
//
//	remote:
//	  base_url: "http://localhost:8000"
//	  timeout: "30s"          # uploads are large, keep this generous
//
//	auth:
//	  signup_mode: "verify"   # verify, immediate
//	  otp_length: 4
//
//	storage:
//	  path: "~/.local/share/coven-workspace/session.db"
//
//	logging:
//	  level: "info"           # debug, info, warn, error
//	  format: "text"          # text, json
//
//	devserver:
//	  http_addr: "localhost:8000"
//	  jwt_secret: "${WORKSPACE_JWT_SECRET}"
//	  token_ttl: "24h"
//	  otp_ttl: "10m"
//
// The same keys are accepted in TOML:
//
//	[remote]
//	base_url = "http://localhost:8000"
//	timeout = "45s"
package config
