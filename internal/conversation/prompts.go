package conversation

import (
	"fmt"
	"strings"

	"voicesurvey-platform/internal/survey"
)

// Prompts are the fixed lines the agent speaks around the questionnaire.
// Question text itself always comes from the questionnaire verbatim.
type Prompts struct {
	// ConsentAck is spoken right after consent is granted.
	ConsentAck string

	// Persuasion is the single gentle re-prompt after an unclear or
	// negative first consent response.
	Persuasion string

	// ClarifyLead prefixes the re-asked question in the Clarifying state.
	ClarifyLead string

	// Closing is spoken after the last question.
	Closing string

	// DeclinedClosing is spoken when consent is declined.
	DeclinedClosing string
}

func (p Prompts) withDefaults() Prompts {
	out := p
	if out.ConsentAck == "" {
		out.ConsentAck = "Great! Let's begin."
	}
	if out.Persuasion == "" {
		out.Persuasion = "Your answers would really help this research, and it only takes a few minutes. Would you like to participate?"
	}
	if out.ClarifyLead == "" {
		out.ClarifyLead = "Sorry, I didn't quite catch that."
	}
	if out.Closing == "" {
		out.Closing = "That's all the questions! Thank you so much for your valuable input. Have a great day!"
	}
	if out.DeclinedClosing == "" {
		out.DeclinedClosing = "I understand. Thank you for your time. Goodbye."
	}
	return out
}

// RenderQuestion interpolates the spoken form of one question: the verbatim
// question text plus the option list or scale range its type requires.
func RenderQuestion(q survey.Question) string {
	var b strings.Builder
	b.WriteString(q.Text)
	switch q.Type {
	case survey.QuestionSingleChoice:
		fmt.Fprintf(&b, " Your options are: %s.", spokenList(q.Options, "or"))
	case survey.QuestionMultiChoice:
		fmt.Fprintf(&b, " You can pick any of: %s.", spokenList(q.Options, "and"))
	case survey.QuestionLinearScale:
		fmt.Fprintf(&b, " On a scale from %d to %d.", q.ScaleMin, q.ScaleMax)
	}
	if !q.Required {
		b.WriteString(" You can say skip if you'd rather not answer.")
	}
	return b.String()
}

// RenderClarification is the single re-prompt for a low-confidence answer.
func RenderClarification(p Prompts, q survey.Question) string {
	switch q.Type {
	case survey.QuestionSingleChoice:
		return fmt.Sprintf("%s Was that %s?", p.ClarifyLead, spokenList(q.Options, "or"))
	case survey.QuestionMultiChoice:
		return fmt.Sprintf("%s Which of these apply: %s?", p.ClarifyLead, spokenList(q.Options, "or"))
	case survey.QuestionLinearScale:
		return fmt.Sprintf("%s Could you give me a number between %d and %d?", p.ClarifyLead, q.ScaleMin, q.ScaleMax)
	default:
		return fmt.Sprintf("%s Could you say that again?", p.ClarifyLead)
	}
}

func spokenList(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + conj + " " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", " + conj + " " + items[len(items)-1]
	}
}
