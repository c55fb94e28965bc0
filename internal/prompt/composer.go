package prompt

import (
	"strings"

	"jude-e/backend/internal/model"
	"jude-e/backend/internal/retrieval"
)

// DocumentSeparator is placed between retrieved documents in the context block.
const DocumentSeparator = "\n\n---\n\n"

const segmentSeparator = "\n\n"

const (
	personaSegment = "You are Jude-E, a friendly assistant for St. Jude Children's Research Hospital. " +
		"You help patients, their families and caregivers understand childhood cancer and life at the hospital."

	childSegment = "The person you are talking to right now is a child. " +
		"Use simple, age-appropriate words and short sentences. Be comforting and reassuring, " +
		"acknowledge how they might be feeling, and explain things the way a kind nurse would to a young patient."

	guidelinesSegment = "Guidelines:\n" +
		"- Base your answer on the retrieved documents provided in the context.\n" +
		"- Avoid medical jargon; when a medical word is needed, explain it in plain language.\n" +
		"- Never give a diagnosis or treatment advice.\n" +
		"- For anything about a specific person's care, tell them to ask their doctor or care team.\n" +
		"- Respond in English only.\n" +
		"- Keep your answer under 300 words.\n" +
		"- Structure the answer as short paragraphs or bullet points.\n" +
		"- When you use a document, name the source naturally in your answer."

	toneSegment = "Tone: be supportive and empathetic at all times, and be extra gentle when speaking with children."

	fallbackSegment = "If the context does not contain relevant information, say that you could not find an answer " +
		"and suggest related resources, such as the care team or the hospital's patient family resources."

	roleSegment = "Your role is to inform, not to advise. Guide people to trusted sources for decisions about care."
)

// Sampling is the generation configuration sent with every prompt. It is fixed
// per deployment.
type Sampling struct {
	Temperature float64
	TopP        float64
	TopK        int
	Think       bool
	// Stream is overwritten by the gateway according to its relay mode.
	Stream bool
}

// Request is the composed payload for one turn. It is built fresh per turn and
// never retained.
type Request struct {
	System string
	Prompt string
	Sampling
}

// Composer builds Requests. It is pure and safe for concurrent use.
type Composer struct {
	sampling Sampling
}

func NewComposer(sampling Sampling) *Composer {
	return &Composer{sampling: sampling}
}

// Compose builds the role-conditioned request for a question and its context.
// A nil bundle is treated as an empty one.
func (c *Composer) Compose(question string, bundle *retrieval.Bundle, role model.Role) *Request {
	return &Request{
		System:   SystemPrompt(role),
		Prompt:   AugmentedPrompt(question, bundle.Texts()),
		Sampling: c.sampling,
	}
}

// SystemPrompt returns the system instruction for the role. The child directive
// is a single segment, so the two variants differ only by that segment.
func SystemPrompt(role model.Role) string {
	segments := make([]string, 0, 6)
	segments = append(segments, personaSegment)
	if role.IsChild() {
		segments = append(segments, childSegment)
	}
	segments = append(segments, guidelinesSegment, toneSegment, fallbackSegment, roleSegment)
	return strings.Join(segments, segmentSeparator)
}

// AugmentedPrompt fills the fixed template. With no documents the context
// segment is empty but the template is unchanged.
func AugmentedPrompt(question string, docs []string) string {
	var b strings.Builder
	b.WriteString("Context: ")
	b.WriteString(strings.Join(docs, DocumentSeparator))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
