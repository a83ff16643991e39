package chat

import "github.com/chatterbox/server/internal/model"

// systemPrompt is the fixed instruction prepended to every context window.
const systemPrompt = "You are a friendly and helpful assistant. Answer clearly and concisely."

// buildContext assembles the model context window: the system instruction,
// the history oldest-first with bot messages mapped to the assistant role,
// and the inbound message appended when the history fetch did not already
// include it.
func buildContext(history []model.Message, inbound model.Message) []ChatMessage {
	window := make([]ChatMessage, 0, len(history)+2)
	window = append(window, ChatMessage{Role: RoleSystem, Content: systemPrompt})

	included := false
	for _, msg := range history {
		role := RoleUser
		if msg.Sender == model.SenderBot {
			role = RoleAssistant
		}
		window = append(window, ChatMessage{Role: role, Content: msg.Content})
		if msg.ID == inbound.ID {
			included = true
		}
	}

	if !included {
		window = append(window, ChatMessage{Role: RoleUser, Content: inbound.Content})
	}

	return window
}
