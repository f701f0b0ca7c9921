// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// # Security Features
//
// The SecureHandler sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, X-Api-Key)
//   - Notion integration tokens ("secret_..." and "ntn_...") anywhere in a value
//   - the signature and credential query parameters of pre-signed file URLs
//   - secret values detected by key name or pattern (passwords, tokens, keys)
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Warn("asset download failed",
//	    "url", "https://s3.example/a.png?X-Amz-Signature=abc", // signature is masked
//	    "error", err,
//	)
//
//	slog.SetDefault(logger)
package log
