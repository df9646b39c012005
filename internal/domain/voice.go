package domain

import "strings"

// SelectVoice picks a voice for language when the caller named none:
// a feminine voice advertising the language, else the first voice
// advertising it, else the first voice the host reported.
func SelectVoice(voices []VoiceDescriptor, language string) (VoiceDescriptor, bool) {
	if len(voices) == 0 {
		return VoiceDescriptor{}, false
	}

	firstMatch := -1
	for i, voice := range voices {
		if !voice.Speaks(language) {
			continue
		}
		if voice.IsFeminine() {
			return voice, true
		}
		if firstMatch < 0 {
			firstMatch = i
		}
	}

	if firstMatch >= 0 {
		return voices[firstMatch], true
	}

	return voices[0], true
}

// Speaks reports whether the voice advertises language. A bare language
// ("en") matches regional variants ("en-us", "en_GB").
func (v VoiceDescriptor) Speaks(language string) bool {
	want := normalizeLanguage(language)
	if want == "" {
		return false
	}

	for _, lang := range v.Languages {
		have := normalizeLanguage(lang)
		if have == want || strings.HasPrefix(have, want+"-") {
			return true
		}
	}
	return false
}

// IsFeminine reports whether the voice carries a feminine gender tag.
func (v VoiceDescriptor) IsFeminine() bool {
	switch strings.ToLower(strings.TrimSpace(v.Gender)) {
	case "female", "f", "feminine", "woman":
		return true
	default:
		return false
	}
}

func normalizeLanguage(language string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(language)), "_", "-")
}

// ClampVolume limits volume to [0.0, 1.0].
func ClampVolume(volume float64) float64 {
	switch {
	case volume < 0:
		return 0
	case volume > 1:
		return 1
	default:
		return volume
	}
}
