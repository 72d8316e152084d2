package languages

import "strings"

// Profile binds a supported conversation language to the voice and
// transcription settings the providers need, plus the fixed phrases the
// call pipeline speaks on its own behalf.
type Profile struct {
	Code        string // short code, ex: "en"
	DisplayName string
	VoiceID     string // synthesis voice identifier
	STTCode     string // transcription language code, ex: "en-US"

	SystemPrompt string // generation system instruction
	Reprompt     string // spoken when speech was missing or low-confidence
	Apology      string // spoken when generation is exhausted
}

const DefaultCode = "en"

var profiles = map[string]Profile{
	"en": {
		Code:         "en",
		DisplayName:  "English",
		VoiceID:      "en-US-Neural2-C",
		STTCode:      "en-US",
		SystemPrompt: "You are a friendly phone assistant. Keep every reply conversational and under 60 words, since it will be spoken aloud to a live caller.",
		Reprompt:     "Sorry, I didn't catch that. Could you say it again?",
		Apology:      "I'm sorry, I'm having trouble answering right now. Could you try once more?",
	},
	"id": {
		Code:         "id",
		DisplayName:  "Bahasa Indonesia",
		VoiceID:      "id-ID-Standard-A",
		STTCode:      "id-ID",
		SystemPrompt: "Kamu adalah asisten telepon yang ramah. Jawab secara percakapan dan di bawah 60 kata, karena jawaban akan diucapkan ke penelepon.",
		Reprompt:     "Maaf, saya tidak menangkap itu. Bisa diulangi?",
		Apology:      "Maaf, saya sedang kesulitan menjawab. Bisa coba sekali lagi?",
	},
	"es": {
		Code:         "es",
		DisplayName:  "Español",
		VoiceID:      "es-US-Neural2-A",
		STTCode:      "es-US",
		SystemPrompt: "Eres un asistente telefónico amable. Responde de forma conversacional y en menos de 60 palabras, porque la respuesta se leerá en voz alta.",
		Reprompt:     "Perdón, no entendí eso. ¿Puede repetirlo?",
		Apology:      "Lo siento, ahora mismo no puedo responder. ¿Puede intentarlo de nuevo?",
	},
}

// Resolve maps a language code to its profile, falling back to the default
// profile for empty or unrecognized codes. Accepts regioned codes ("en-US").
func Resolve(code string) Profile {
	c := strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(c, "-_"); i > 0 {
		c = c[:i]
	}
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[DefaultCode]
}

// Supported reports whether the code maps to a profile without fallback.
func Supported(code string) bool {
	c := strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(c, "-_"); i > 0 {
		c = c[:i]
	}
	_, ok := profiles[c]
	return ok
}
