package espeak

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/davidbz/voxrelay/internal/domain"
)

// "--voices" prints one voice per row:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
const (
	colLanguage = 1
	colGender   = 2
	colName     = 3
	colFile     = 4
	minColumns  = 5
)

func parseVoices(out []byte) []domain.VoiceDescriptor {
	voices := make([]domain.VoiceDescriptor, 0)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < minColumns || fields[0] == "Pty" {
			continue
		}

		id := fields[colLanguage]
		if seen[id] {
			continue
		}
		seen[id] = true

		voices = append(voices, domain.VoiceDescriptor{
			ID:        id,
			Name:      strings.ReplaceAll(fields[colName], "_", " "),
			Languages: append([]string{id}, otherLanguages(fields[colFile+1:])...),
			Gender:    gender(fields[colGender]),
		})
	}

	return voices
}

// otherLanguages reads "(en 3)(en-gb 5)" style columns, dropping priorities.
func otherLanguages(fields []string) []string {
	var langs []string
	for _, field := range fields {
		for _, token := range strings.FieldsFunc(field, func(r rune) bool { return r == '(' || r == ')' }) {
			if _, err := strconv.Atoi(token); err == nil {
				continue
			}
			langs = append(langs, token)
		}
	}
	return langs
}

func gender(ageGender string) string {
	tag := ageGender
	if i := strings.LastIndex(ageGender, "/"); i >= 0 {
		tag = ageGender[i+1:]
	}

	switch strings.ToUpper(tag) {
	case "F":
		return "female"
	case "M":
		return "male"
	default:
		return "unknown"
	}
}
