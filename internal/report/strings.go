package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/example/violation-audit/internal/audit"
)

// Strings are the presentation texts of one audit.
type Strings struct {
	Title        string
	FailureTitle string
	Description  string
}

var supportedLocales = []language.Tag{language.English, language.Spanish}

var uiStrings = map[language.Tag]map[string]string{
	language.English: {
		audit.ColumnSourceKey: "Source",

		audit.PassiveEventListenersID + ".title":        "Uses passive listeners to improve scrolling performance",
		audit.PassiveEventListenersID + ".failureTitle": "Does not use passive listeners to improve scrolling performance",
		audit.PassiveEventListenersID + ".description":  "Consider marking your touch and wheel event listeners as `passive` to improve your page's scroll performance. [Learn more about adopting passive event listeners](https://web.dev/uses-passive-event-listeners/).",

		audit.NoDocumentWriteID + ".title":        "Avoids `document.write()`",
		audit.NoDocumentWriteID + ".failureTitle": "Uses `document.write()`",
		audit.NoDocumentWriteID + ".description":  "External scripts dynamically injected via `document.write()` can delay page load by tens of seconds on slow connections.",

		audit.GeolocationOnStartID + ".title":        "Avoids requesting the geolocation permission on page load",
		audit.GeolocationOnStartID + ".failureTitle": "Requests the geolocation permission on page load",
		audit.GeolocationOnStartID + ".description":  "Users are mistrustful of or confused by sites that request their location without context. Consider tying the request to a user action instead.",

		audit.NotificationOnStartID + ".title":        "Avoids requesting the notification permission on page load",
		audit.NotificationOnStartID + ".failureTitle": "Requests the notification permission on page load",
		audit.NotificationOnStartID + ".description":  "Users are mistrustful of or confused by sites that request to send notifications without context. Consider tying the request to user gestures instead.",
	},
	language.Spanish: {
		audit.ColumnSourceKey: "Fuente",

		audit.PassiveEventListenersID + ".title":        "Usa listeners pasivos para mejorar el rendimiento del desplazamiento",
		audit.PassiveEventListenersID + ".failureTitle": "No usa listeners pasivos para mejorar el rendimiento del desplazamiento",
		audit.PassiveEventListenersID + ".description":  "Marca los listeners de eventos táctiles y de rueda como `passive` para mejorar el rendimiento del desplazamiento de la página.",

		audit.NoDocumentWriteID + ".title":        "Evita `document.write()`",
		audit.NoDocumentWriteID + ".failureTitle": "Usa `document.write()`",
	},
}

// Localizer resolves UI string keys for one locale, falling back to English.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
	english *message.Printer
	keys    map[language.Tag]map[string]struct{}
}

// NewLocalizer builds a localizer for locale. custom holds English strings for
// config-defined audits, keyed by audit id.
func NewLocalizer(locale string, custom map[string]Strings) (*Localizer, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	keys := map[language.Tag]map[string]struct{}{}
	set := func(tag language.Tag, key, msg string) error {
		if err := b.SetString(tag, key, msg); err != nil {
			return fmt.Errorf("catalog %s/%s: %w", tag, key, err)
		}
		if keys[tag] == nil {
			keys[tag] = map[string]struct{}{}
		}
		keys[tag][key] = struct{}{}
		return nil
	}

	for tag, table := range uiStrings {
		for key, msg := range table {
			if err := set(tag, key, msg); err != nil {
				return nil, err
			}
		}
	}

	for id, s := range custom {
		for suffix, msg := range map[string]string{".title": s.Title, ".failureTitle": s.FailureTitle, ".description": s.Description} {
			if msg == "" {
				continue
			}
			if err := set(language.English, id+suffix, strings.ReplaceAll(msg, "%", "%%")); err != nil {
				return nil, err
			}
		}
	}

	tag := matchLocale(locale)
	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
		english: message.NewPrinter(language.English, message.Catalog(b)),
		keys:    keys,
	}, nil
}

func matchLocale(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	desired, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, idx, confidence := language.NewMatcher(supportedLocales).Match(desired)
	if confidence == language.No {
		return language.English
	}
	return supportedLocales[idx]
}

// Locale returns the matched locale.
func (l *Localizer) Locale() string {
	return l.tag.String()
}

// Lookup returns the localized text for key. Keys missing for the locale use the English
// text; keys missing everywhere return fallback.
func (l *Localizer) Lookup(key, fallback string) string {
	if _, ok := l.keys[l.tag][key]; ok {
		return l.printer.Sprintf(message.Key(key, key))
	}
	if _, ok := l.keys[language.English][key]; ok {
		return l.english.Sprintf(message.Key(key, key))
	}
	return fallback
}

// Localize fills titles, descriptions and heading texts. The inputs are not modified.
func (l *Localizer) Localize(results []audit.Result) []audit.Result {
	out := make([]audit.Result, len(results))
	for i, res := range results {
		titleKey := res.ID + ".title"
		if !res.Passed() && !res.Errored() {
			titleKey = res.ID + ".failureTitle"
		}
		res.Title = l.Lookup(titleKey, l.Lookup(res.ID+".title", res.ID))
		res.Description = l.Lookup(res.ID+".description", "")

		headings := make([]audit.Heading, len(res.Details.Headings))
		for j, h := range res.Details.Headings {
			h.Text = l.Lookup(h.Text, h.Text)
			headings[j] = h
		}
		res.Details.Headings = headings
		out[i] = res
	}
	return out
}
