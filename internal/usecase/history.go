package usecase

import "rental-assistant/internal/domain"

// toChatTurns converts stored turns into the chat API shape, keeping order.
func toChatTurns(history []domain.Turn) []domain.ChatTurn {
	out := make([]domain.ChatTurn, 0, len(history))
	for _, t := range history {
		out = append(out, domain.ChatTurn{
			Role:  string(chatRole(t.Role)),
			Parts: []domain.ChatPart{{Text: t.Content}},
		})
	}
	return out
}

func chatRole(r domain.Role) domain.Role {
	if r == domain.RoleAssistant {
		return domain.RoleModel
	}
	return r
}

// composeMessage prepends injected context to the user's text. Context never
// reaches persisted turns.
func composeMessage(productContext, raw string) string {
	if productContext == "" {
		return raw
	}
	return productContext + " User's question: " + raw
}

// appendExchange returns a new history with the user's raw text and the
// reply appended, leaving the input slice untouched.
func appendExchange(history []domain.Turn, raw, reply string) []domain.Turn {
	out := make([]domain.Turn, 0, len(history)+2)
	out = append(out, history...)
	return append(out,
		domain.Turn{Role: domain.RoleUser, Content: raw},
		domain.Turn{Role: domain.RoleAssistant, Content: reply},
	)
}
