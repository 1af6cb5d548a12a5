package model

// BotProfile is the conversational identity of the bot: the persona handed to
// the language model and the canned replies used outside the generation path.
type BotProfile struct {
	Name        string
	Persona     string
	Welcome     string
	Fallback    string
	RateLimited string
	Unsupported string
	MenuPrompt  string
	Menu        []Button
}

// DefaultBotProfile returns a neutral profile. Deployments replace it with a
// TOML profile file.
func DefaultBotProfile() *BotProfile {
	return &BotProfile{
		Name: "Assistant",
		Persona: "You are a friendly and helpful assistant. " +
			"Answer questions using the knowledge base passages provided with each message. " +
			"When the passages do not cover the question, say so honestly and offer to help another way. " +
			"Keep replies short enough to read comfortably in a chat.",
		Welcome: "Hello! I'm here to help. Ask me anything, " +
			"or send \"menu\" to see what I can do.",
		Fallback: "I could not find anything about that in my knowledge base. " +
			"Could you rephrase the question, or ask me something else?",
		RateLimited: "You're sending messages a little too quickly. " +
			"Please wait a moment and try again.",
		Unsupported: "Thanks for your message. I can only read text right now, " +
			"so please send your question as a text message.",
		MenuPrompt: "What would you like to do?",
	}
}
