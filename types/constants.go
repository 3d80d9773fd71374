package types

const (
	// NullifierTreeMaxLevels is the maximum number of levels of the spent
	// nullifiers merkle tree. Keys are sha256 digests.
	NullifierTreeMaxLevels = 256
	// BurnsPerBatch is the default number of burns validated in parallel by
	// a single batch.
	BurnsPerBatch = 16
	// MaxBurnSize is the maximum accepted size of an encoded burn operation.
	MaxBurnSize = 4096
)
