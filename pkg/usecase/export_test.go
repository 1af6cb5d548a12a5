package usecase

// Export internals for testing
var (
	NewSenderLimiter = newSenderLimiter
	ChunkText        = chunkText
	SplitBucketURL   = splitBucketURL
	StemOf           = stemOf
)
