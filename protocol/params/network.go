package params

// AppID is a public identifier for this ledger, used in file names and the
// API status payload.
const AppID = "raktchain"

// FormatVersion identifies the persisted chain layout. It is reported by the
// API but not embedded in the file, so older files stay readable.
const FormatVersion uint32 = 1
