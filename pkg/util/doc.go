// Package util provides small helpers shared across imposd packages,
// such as truncating request payloads for safe logging.
package util
