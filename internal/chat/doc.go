// Package chat defines the value types that flow through the chat log engine:
// squad and party messages, per-account notes, and the search request and
// session types the producer polls.
//
// Everything here is plain data. Persistence lives in internal/store and the
// asynchronous plumbing lives in internal/engine.
package chat
