package survey

import (
	"fmt"
	"strings"
)

// BuildInstructions renders the system instruction text handed to the
// external conversational engine for one call.
//
// This is a pure templating function. It only affects what is spoken, never
// how call states transition; keep state-machine concerns out of here.
func BuildInstructions(qn *Questionnaire, researcherName, participantName string) string {
	if researcherName == "" {
		researcherName = "our team"
	}
	if participantName == "" {
		participantName = "there"
	}

	var lines []string
	for i := 0; i < qn.Len(); i++ {
		q := qn.At(i)
		line := fmt.Sprintf("%d. [%s] %s", i+1, q.Type, q.Text)
		switch q.Type {
		case QuestionSingleChoice, QuestionMultiChoice:
			line += "\n   Options: " + strings.Join(q.Options, ", ")
		case QuestionLinearScale:
			line += fmt.Sprintf("\n   Scale: %d to %d", q.ScaleMin, q.ScaleMax)
		}
		lines = append(lines, line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are conducting a voice survey for %s about %q.\n", researcherName, qn.title)
	fmt.Fprintf(&b, "Speak in a %s tone.\n\n", toneOrDefault(qn.voice.Tone))
	b.WriteString("QUESTIONS (ask in this exact order):\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "GREETING: Hi %s! I'm %s's assistant. %s\n\n", participantName, researcherName, qn.consentScript)
	b.WriteString("Ask each question clearly and briefly, wait for the answer, acknowledge with one word, then move on. Never ramble or improvise beyond the script.\n")
	if qn.voice.Instructions != "" {
		b.WriteString("\nCUSTOM INSTRUCTIONS:\n")
		b.WriteString(qn.voice.Instructions)
		b.WriteString("\n")
	}
	return b.String()
}

func toneOrDefault(tone string) string {
	switch tone {
	case "friendly", "professional", "casual":
		return tone
	default:
		return "friendly"
	}
}
