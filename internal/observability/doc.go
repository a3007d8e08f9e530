// Package observability provides structured logging and pipeline counters
// for the grounded QA service.
//
// Loggers are zap-based; WithContext attaches the request and query
// identifiers carried on the context so every pipeline stage logs them.
package observability
