// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Extraction attributes
	ExtractProfileKey  = "extract.profile"
	ExtractClientKey   = "extract.client"
	ExtractAttemptsKey = "extract.attempts"
	ExtractOutcomeKey  = "extract.outcome"

	// Download attributes
	DownloadIDKey    = "download.id"
	DownloadBytesKey = "download.bytes"

	// Error attributes
	ErrorKey     = "error"
	ErrorKindKey = "error.kind"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ExtractAttributes creates extraction-related span attributes.
func ExtractAttributes(profile, outcome string, attempts int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ExtractProfileKey, profile),
		attribute.String(ExtractOutcomeKey, outcome),
		attribute.Int(ExtractAttemptsKey, attempts),
	}
}
