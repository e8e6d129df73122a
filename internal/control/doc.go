// Package control is the mutation surface over the mirrored graph.
//
// Every operation here flows the same way: consult the mirror for current
// state, build the write, and apply it through the object's live binding
// under the loop lock. The mirror is never updated directly; the server's
// own event (the parameter echo, the metadata fan-out, the registry
// removal) is what moves the mirrored state, so reads stay consistent with
// what the server actually accepted.
//
//	caller ──► Ops ──► Mirror.UseNodeBinding / UseSettingsMetadata
//	                          │
//	                          ▼ (loop lock)
//	                   handle.SetParam / SetProperty
//	                          │
//	                          ▼
//	                   server event ──► Mirror state
//
// All mutators return bool. Expected absence, an unbound node, a missing
// metadata object, a write the server rejects outright, reports as false
// and never panics. Callers that need to distinguish "absent" from
// "refused" should consult the mirror's capability accessors first.
//
// Volume writes prefer the multi-channel representation and fall back to a
// scalar when the node rejects channel arrays. Default-device writes are
// retried against the mirror for a bounded window because the server
// re-evaluates them asynchronously.
package control
