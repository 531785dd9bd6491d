// Package sessions holds the per-respondent conversation state and the store
// that owns it. A session exists only while its respondent is mid-form: it is
// created on form start and destroyed on completion, abort, or an explicit
// return home. All state is ephemeral and discarded on process exit.
//
// Layers & Roles
//
//	Session -> position in the question set, accumulated answers, awaiting flag
//	Store   -> session-by-respondent map with defined insert/remove points
//
// Characteristics
//
//	Durability   : none (RAM only)
//	Concurrency  : Store is safe across respondents; a single Session is
//	               mutated only by its respondent's serialized turn handler
//	Ordering     : answers keep insertion order for submission
//
// Session methods are pure in-memory mutations with no I/O; all gateway calls
// live in the engine.
package sessions
