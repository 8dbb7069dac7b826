package chat

import "mentor/internal/domain"

// imageMIMEType is the capture format of the front-end camera.
const imageMIMEType = "image/jpeg"

// imageOnlyPrompt stands in for the text part when a user submits images with
// no accompanying text. Applied only to the live turn, never to history.
const imageOnlyPrompt = "Por favor, analiza estas imágenes de código en orden, transcribe el código completo para un mejor entendimiento y dime qué está haciendo o dame consejos."

// SerializeHistory maps a session's messages to backend turns, excluding the
// synthetic greeting. Images become inline parts in original order, before
// the text part. A message with neither serializes to an empty part list.
func SerializeHistory(messages []domain.Message) []domain.Turn {
	var turns []domain.Turn
	for _, msg := range messages {
		if msg.ID == domain.GreetingMessageID {
			continue
		}
		turns = append(turns, domain.Turn{
			Role:  msg.Role,
			Parts: messageParts(msg),
		})
	}
	return turns
}

// NewUserTurn builds the trailing turn for a just-submitted message. Unlike
// history serialization, an image-only submission gets the fixed analysis
// prompt as its text part.
func NewUserTurn(msg domain.Message) domain.Turn {
	parts := messageParts(msg)
	if msg.Text == "" && len(msg.Images) > 0 {
		parts = append(parts, domain.Part{Text: imageOnlyPrompt})
	}
	return domain.Turn{Role: domain.RoleUser, Parts: parts}
}

func messageParts(msg domain.Message) []domain.Part {
	parts := make([]domain.Part, 0, len(msg.Images)+1)
	for _, img := range msg.Images {
		parts = append(parts, domain.Part{
			Inline: &domain.InlineData{MIMEType: imageMIMEType, Data: img},
		})
	}
	if msg.Text != "" {
		parts = append(parts, domain.Part{Text: msg.Text})
	}
	return parts
}
