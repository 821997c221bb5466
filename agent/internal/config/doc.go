// Package config loads the agent configuration.
//
// Top-level types:
//   - Config{Workspace, Shipper, Sources, Metrics, Log}: full tree parsed from YAML
//   - WorkspaceConfig: customer_id, shared_key / shared_key_env,
//     default_log_type, host, endpoint; Key() resolves the secret, BaseURL()
//     builds https://{customer_id}.{host} unless endpoint overrides it
//   - ShipperConfig: max_concurrent_requests, send_frequency,
//     request_timeout, shutdown_flush_timeout, user_agent, tls
//   - Source: a followed file: id, path, log_type, level, from_start
//
// Load(path) reads the YAML file (optional), applies defaults (10 concurrent
// requests, 5s send frequency, 30s request timeout), overlays the
// AZURE_LOG_* environment variables, then validates. A numeric environment
// value that does not parse is an error: the agent does not start.
package config
