package responder

// Export internals for testing
var BuildReplyPrompt = buildReplyPrompt
