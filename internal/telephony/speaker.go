package telephony

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// SpeakCommand is the "speak this text" payload handed to the media layer.
// Fire-and-forget from the core's perspective; the media layer reports the
// logical "utterance fully spoken" checkpoint before transcription resumes.
type SpeakCommand struct {
	CallID string `json:"call_id"`
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
}

// MediaSink delivers speak commands to the provider media plane.
type MediaSink interface {
	Send(ctx context.Context, cmd SpeakCommand) error
}

// SinkSpeaker adapts a MediaSink to the conversation.Speaker contract,
// sanitizing text on the way out.
type SinkSpeaker struct {
	Sink  MediaSink
	Voice string
}

func (s SinkSpeaker) Speak(ctx context.Context, callID, text string) error {
	if s.Sink == nil {
		return errors.New("telephony: media sink not configured")
	}
	text = SanitizeSpokenText(text)
	if text == "" {
		return nil
	}
	return s.Sink.Send(ctx, SpeakCommand{CallID: callID, Text: text, Voice: s.Voice})
}

// SanitizeSpokenText strips control characters and markup brackets that
// confuse TTS engines, and collapses whitespace runs. Question text reaches
// the participant otherwise verbatim.
func SanitizeSpokenText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '<' || r == '>':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
