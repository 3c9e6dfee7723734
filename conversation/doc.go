// Package conversation provides the in-memory session store for chat
// history. Sessions expire after a period of inactivity, histories are
// trimmed to a fixed cap while preserving leading system messages, and
// every operation is safe for concurrent use.
package conversation
