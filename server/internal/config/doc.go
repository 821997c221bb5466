// Package config loads the ingestion server configuration from the `server:`
// section of config.yaml (other top-level keys are ignored).
//
// Config fields:
//   - HTTPPort       : port for ingestion and the query API (default 8080)
//   - Auth.Mode      : "sharedkey" (default) or "none"
//   - Auth.CustomerID: workspace ID requests must be signed for
//   - Auth.KeyEnv    : environment variable holding the base64 workspace key
//   - Auth.MaxSkew   : accepted x-ms-date drift (default 15m)
//   - Records.TTL    : how long accepted records stay queryable (default 15m)
//   - Records.Max    : per Log-Type record cap (default 10000)
//   - FailFirst      : answer the first N posts with HTTP 500
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
