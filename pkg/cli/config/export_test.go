package config

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewStoreForTest creates a Store config for testing purposes
func NewStoreForTest(backend string, dimension int) *Store {
	return &Store{
		backend:   backend,
		dimension: dimension,
	}
}

// NewLLMForTest creates an LLM config for testing purposes
func NewLLMForTest(provider, geminiProject, geminiLocation, openaiAPIKey string) *LLM {
	return &LLM{
		provider:       provider,
		geminiProject:  geminiProject,
		geminiLocation: geminiLocation,
		openaiAPIKey:   openaiAPIKey,
	}
}

// NewGatewayForTest creates a Gateway config for testing purposes
func NewGatewayForTest(accessToken, phoneNumberID, verifyToken, appSecret string) *Gateway {
	return &Gateway{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		verifyToken:   verifyToken,
		appSecret:     appSecret,
	}
}
