// Package lesson defines the practice request types and builds the chat
// prompts for content, translation, explanation, phonetics and follow-up chat.
package lesson

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nadzzz/shadowcast/internal/generation"
	"github.com/nadzzz/shadowcast/internal/provider"
)

// Scene is the topic of generated content.
type Scene string

const (
	SceneDaily    Scene = "daily"
	SceneTravel   Scene = "travel"
	SceneBusiness Scene = "business"
	SceneFood     Scene = "food"
	SceneShopping Scene = "shopping"
	SceneHealth   Scene = "health"
	SceneCulture  Scene = "culture"
	SceneTech     Scene = "tech"
)

var sceneDescriptions = map[Scene]string{
	SceneDaily:    "daily life conversations like greetings, small talk, or daily routines",
	SceneTravel:   "travel scenarios like asking for directions, booking hotels, or transportation",
	SceneBusiness: "business situations like meetings, presentations, or professional emails",
	SceneFood:     "food and dining scenarios like ordering at restaurants or discussing recipes",
	SceneShopping: "shopping situations like asking prices, bargaining, or product inquiries",
	SceneHealth:   "health-related conversations like describing symptoms or pharmacy visits",
	SceneCulture:  "cultural topics like movies, music, art, or entertainment",
	SceneTech:     "technology discussions like apps, devices, or internet services",
}

// Length is the requested size of generated content.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

var lengthGuide = map[Length]string{
	LengthShort:  "2-3 sentences (20-40 words)",
	LengthMedium: "4-6 sentences (50-80 words)",
	LengthLong:   "7-10 sentences (100-150 words)",
}

var difficultyGuide = map[int]string{
	1: "Use very simple vocabulary and short sentences. Speak very slowly.",
	2: "Use basic vocabulary and simple sentence structures. Speak slowly.",
	3: "Use moderate vocabulary with some variety. Normal conversational pace.",
	4: "Use natural vocabulary and varied sentence structures. Near-native pace.",
	5: "Use native-level vocabulary, idioms, and complex structures. Natural native speed.",
}

// Sampling temperatures per task.
const (
	contentTemperature     = 0.8
	translationTemperature = 0.3
	explainTemperature     = 0.7
	phoneticsTemperature   = 0.1
	phoneticsMaxTokens     = 256
	chatTemperature        = 0.7
)

// Request describes the practice content to generate. It fully determines the
// prompt sent to the chat provider.
type Request struct {
	// TargetLanguage is the language being learned (code such as "ja", or a name).
	TargetLanguage string `json:"target_language"`

	// NativeLanguage is the learner's own language.
	NativeLanguage string `json:"native_language"`

	// Difficulty ranges from 1 (beginner) to 5 (advanced).
	Difficulty int `json:"difficulty"`

	// Scene selects the topic.
	Scene Scene `json:"scene"`

	// Length selects how many sentences to produce.
	Length Length `json:"length"`
}

// Validate checks that every field has a supported value.
func (r Request) Validate() error {
	var errs []error
	if strings.TrimSpace(r.TargetLanguage) == "" {
		errs = append(errs, errors.New("target_language is required"))
	}
	if strings.TrimSpace(r.NativeLanguage) == "" {
		errs = append(errs, errors.New("native_language is required"))
	}
	if r.Difficulty < 1 || r.Difficulty > 5 {
		errs = append(errs, fmt.Errorf("difficulty must be between 1 and 5, got %d", r.Difficulty))
	}
	if _, ok := sceneDescriptions[r.Scene]; !ok {
		errs = append(errs, fmt.Errorf("unknown scene %q", r.Scene))
	}
	if _, ok := lengthGuide[r.Length]; !ok {
		errs = append(errs, fmt.Errorf("unknown length %q", r.Length))
	}
	return errors.Join(errs...)
}

// Content builds the streamed content-generation job for r.
func Content(r Request) (generation.Job, error) {
	if err := r.Validate(); err != nil {
		return generation.Job{}, err
	}
	target := LanguageName(r.TargetLanguage)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate a %s (%s) dialogue or monologue in %s about %s.\n\n",
		r.Length, lengthGuide[r.Length], target, sceneDescriptions[r.Scene])
	fmt.Fprintf(&sb, "Difficulty level: %d/5\n%s\n\n", r.Difficulty, difficultyGuide[r.Difficulty])
	sb.WriteString("Requirements:\n")
	fmt.Fprintf(&sb, "- Write ONLY the %s text, no translations or explanations\n", target)
	sb.WriteString("- Make it natural and conversational\n")
	sb.WriteString("- If it's a dialogue, use A: and B: to indicate speakers\n")
	sb.WriteString("- Content should be practical and useful for language learners\n\n")
	sb.WriteString("Output the text directly without any markdown formatting or additional commentary.")

	return generation.Job{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: fmt.Sprintf("You are a language learning content creator. Generate natural, practical %s content for language learners.", target)},
			{Role: provider.RoleUser, Content: sb.String()},
		},
		Options: provider.ChatOptions{Temperature: contentTemperature},
	}, nil
}

// Translation builds a streamed translation job.
func Translation(text, from, to string) generation.Job {
	return generation.Job{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "You are a professional translator. Translate accurately while maintaining natural expression in the target language."},
			{Role: provider.RoleUser, Content: fmt.Sprintf("Translate the following %s text to %s. Output only the translation, no explanations:\n\n%s",
				LanguageName(from), LanguageName(to), text)},
		},
		Options: provider.ChatOptions{Temperature: translationTemperature},
	}
}

// Explanation builds a streamed markdown explanation of a word or phrase.
// context is the surrounding sentence and may be empty.
func Explanation(word, target, native, context string) generation.Job {
	target, native = LanguageName(target), LanguageName(native)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Explain the word/phrase \"%s\" in %s to a %s speaker.\n\n", word, target, native)
	if context != "" {
		fmt.Fprintf(&sb, "Context: \"%s\"\n\n", context)
	}
	sb.WriteString("Be casual and fun, like chatting with a friend. Use markdown formatting. Cover:\n")
	sb.WriteString("- **Meaning**: What it means (brief, clear)\n")
	sb.WriteString("- **Cultural context**: Any nuances or cultural aspects\n")
	sb.WriteString("- **Examples**: 1-2 common usage scenarios\n")
	sb.WriteString("- **Tone**: formal, casual, slang?\n")
	sb.WriteString("- **Similar words**: Easily confused words and their differences\n\n")
	fmt.Fprintf(&sb, "Keep it concise and engaging. Skip textbook language. Use %s for explanations but keep examples in %s.", native, target)

	return generation.Job{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: fmt.Sprintf("You are a friendly language tutor who explains things in a casual, engaging way. Use markdown formatting for better readability. Respond in %s.", native)},
			{Role: provider.RoleUser, Content: sb.String()},
		},
		Options: provider.ChatOptions{Temperature: explainTemperature},
	}
}

// Phonetics builds a non-streamed IPA transcription request.
func Phonetics(text, language string) ([]provider.Message, provider.ChatOptions) {
	return []provider.Message{
			{Role: provider.RoleSystem, Content: "You are a linguistics expert. Provide accurate IPA (International Phonetic Alphabet) transcriptions."},
			{Role: provider.RoleUser, Content: fmt.Sprintf("Provide the IPA phonetic transcription for this %s text. Output ONLY the IPA transcription in square brackets, nothing else:\n\n%s",
				LanguageName(language), text)},
		},
		provider.ChatOptions{Temperature: phoneticsTemperature, MaxTokens: phoneticsMaxTokens}
}

// ChatAbout builds a follow-up question about selected text. history holds
// earlier user and assistant turns of the same conversation.
func ChatAbout(selected, question, target, native string, history []provider.Message) ([]provider.Message, provider.ChatOptions) {
	target, native = LanguageName(target), LanguageName(native)
	system := fmt.Sprintf("You are a friendly language learning assistant. The user is learning %s and their native language is %s.\n\n"+
		"They have selected this text: \"%s\"\n\n"+
		"Help them understand it better. Be encouraging, patient, and explain things clearly in %s. "+
		"If they ask about grammar, vocabulary, or usage, provide helpful explanations with examples.",
		target, native, selected, native)

	msgs := make([]provider.Message, 0, len(history)+2)
	msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: system})
	for _, m := range history {
		if m.Role == provider.RoleUser || m.Role == provider.RoleAssistant {
			msgs = append(msgs, m)
		}
	}
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: question})
	return msgs, provider.ChatOptions{Temperature: chatTemperature}
}
