// Package chat orchestrates retrieval-augmented conversations.
//
// The Orchestrator type composes the conversation store, the retriever and
// a language model into single chat turns, blocking or streaming. Retrieved
// knowledge is embedded into an instructional system prompt on a session's
// first turn; when nothing relevant is found the model is skipped and a
// fixed fallback answer is returned instead.
package chat
