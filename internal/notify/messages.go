package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	keyAppTitle    = "app.title"
	keyDefaultBody = "push.default_body"
)

var supported = []language.Tag{language.Arabic, language.English}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[string]string{
	language.Arabic: {
		keyAppTitle:    "مانغا سلاير",
		keyDefaultBody: "فصل جديد متاح!",
	},
	language.English: {
		keyAppTitle:    "Manga Slayer",
		keyDefaultBody: "New chapter available!",
	},
}

func init() {
	for tag, messages := range catalog {
		for key, msg := range messages {
			_ = message.SetString(tag, key, msg)
		}
	}
}

// printer returns a message printer for lang, falling back to Arabic.
func printer(lang string) *message.Printer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Arabic
	}
	_, idx, _ := matcher.Match(tag)
	return message.NewPrinter(supported[idx])
}
