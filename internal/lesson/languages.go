package lesson

import "strings"

// Language is a supported practice language.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

// Languages lists the supported languages.
var Languages = []Language{
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "fr", Name: "French", NativeName: "Français"},
}

// LanguageName resolves a code to its English name. Anything else is returned
// unchanged so callers may pass a name directly.
func LanguageName(code string) string {
	for _, l := range Languages {
		if strings.EqualFold(l.Code, code) {
			return l.Name
		}
	}
	return code
}

// LanguageCode resolves a code or English name to its code, or "" if unknown.
func LanguageCode(s string) string {
	for _, l := range Languages {
		if strings.EqualFold(l.Code, s) || strings.EqualFold(l.Name, s) {
			return l.Code
		}
	}
	return ""
}

// DefaultSpeechRate is used for unknown difficulty levels.
const DefaultSpeechRate = 0.8

var speechRates = map[int]float64{1: 0.6, 2: 0.7, 3: 0.8, 4: 0.9, 5: 1.0}

// SpeechRate returns the narration speed for a difficulty level.
func SpeechRate(difficulty int) float64 {
	if r, ok := speechRates[difficulty]; ok {
		return r
	}
	return DefaultSpeechRate
}
