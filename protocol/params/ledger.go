package params

// Ledger-level constants shared by the ledger package, the CLI and the API.
//
// Changing any of the genesis or hashing constants changes every block hash,
// so an existing ledger file will fail verification and be rebuilt.
const (
	// GenesisTimestamp is fixed so genesis blocks built on different hosts
	// are comparable.
	GenesisTimestamp = "2025-01-01T00:00:00.000Z"

	// GenesisMessage is the payload message of the genesis block.
	GenesisMessage = "Raktchain genesis block"

	// ZeroHash is the previousHash sentinel of the genesis block.
	ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

	// HashDelimiter separates the fields of the hash preimage.
	HashDelimiter = "|"

	// TimestampLayout matches an ISO-8601 instant with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Proof-of-work parameters.
const (
	// DefaultDifficulty is the number of leading zero hex characters required
	// when no difficulty is configured.
	DefaultDifficulty = 3

	// MaxDifficulty is the hex length of a 256-bit digest.
	MaxDifficulty = 64

	// YieldInterval is how many nonce attempts the miner makes between
	// scheduler yields.
	YieldInterval = 5000
)

// Storage defaults.
const (
	DefaultDataDir        = "./raktchain-data"
	DefaultLedgerFilename = "raktchain-ledger.json"
	DefaultBoltFilename   = "raktchain-ledger.db"
)
