// Package httputil provides the JSON response and request helpers shared by
// the dashboard API handlers, so every endpoint returns the same envelope.
package httputil
