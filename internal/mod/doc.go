// Package mod models the independently toggleable components ("mods") of the
// target application and the requirements they place on each other.
//
// # Enable/disable state
//
// A mod is switched on and off by renaming its jar. Two disabled markers exist
// so that the tool never confuses its own bookkeeping with user intent:
//
//	example.jar               enabled
//	example.jar.tempdisabled  disabled by a search run (transient)
//	example.jar.disabled      disabled by the user (permanent)
//
// Enabling a mod only ever lifts the transient marker. Everything a search run
// does can therefore be undone by restoring transient markers, and a user's own
// choices survive an interrupted run.
//
// # Propagation
//
// Enable pulls in every dependency the set knows about, optional ones included,
// transitively. A nested mod has no jar of its own; its requirement on the
// owning mod brings that jar back. Disable marks the mod and then applies the Set's
// DisableCascade policy to its dependents.
//
// Every operation returns the Changes it actually made. Callers that need an
// exact round trip (the search engine) revert those Changes instead of issuing
// a Disable, which keeps cascades from leaking state between oracle runs.
package mod
