// Package engine persists chat messages and per-account notes and answers
// note lookups and message searches without blocking the caller.
//
// ARCHITECTURE:
//
// Two workers, two queues:
// Writes (messages, note upserts, color updates, deletes) go to the insert
// queue and are applied by the insert worker one statement at a time in
// enqueue order. Reads (note lookups, searches) go to the query queue and
// are served by the query worker. There is no ordering between the queues.
//
// Results come back through shared state the caller polls:
//   - The note cache holds one QueriedNote per account. A miss stores
//     Pending and queues a single lookup; duplicate calls see Pending.
//     Local writes update the cache at once, and a lookup result only
//     replaces a Pending entry.
//   - The search session holds one slot. Each search gets a fresh id from
//     Clock, and a result is published only if its id is still the one the
//     slot is waiting for.
//
// Close closes both queues, lets the workers drain them, and then closes
// the store.
package engine
