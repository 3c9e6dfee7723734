// Package ingestion provides the document ingestion pipeline.
//
// The Pipeline type turns uploaded files and manually authored text into
// indexed vector chunks:
//   - Parse jobs for uploaded files run asynchronously on a worker pool,
//     tracked by a per-knowledge state machine
//     (PENDING -> RUNNING -> DONE | FAILED)
//   - Manual text is embedded synchronously, outside the state machine
//   - Stale vectors can be deleted when a record or its file is replaced
//
// Processing errors never fail the submit call; they end the job in the
// FAILED state with a logged cause. A fresh upload is the only retry path.
package ingestion
