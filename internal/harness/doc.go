// Package harness boots the target application and classifies how the boot
// went. It is the oracle the search engine consults.
//
// One boot at a time: Test spawns the configured command, waits for it to exit
// or for its time to run out, and collects crash evidence that appeared during
// the run. TestForError additionally scans the evidence and known log files for
// a symptom. Both always leave the application stopped.
//
// Launchers often start the game as a separate java process that outlives the
// command they were given. After spawning, the harness looks for new processes
// matching a name and argument heuristic and terminates them along with the
// command's own process group.
package harness
