package ir

// Version constants for the journal format and the engine.
const (
	// JournalVersion is the version of the canonical bundle encoding stored in the journal.
	JournalVersion = "1"

	// EngineVersion is the ledgerflow engine version.
	EngineVersion = "0.1.0"
)
