// Package langmeta provides a shared language metadata registry
// (English names for prompt building, native names and emoji flags for
// CLI display).
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	// Name is the English language name, used when prompting the
	// translation backend.
	Name string
	// Native is the language's own name, used in status output.
	Native string
	Flag   string
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "Arabic", Native: "العربية", Flag: "🇸🇦"},
	"cs":    {Name: "Czech", Native: "Čeština", Flag: "🇨🇿"},
	"da":    {Name: "Danish", Native: "Dansk", Flag: "🇩🇰"},
	"de":    {Name: "German", Native: "Deutsch", Flag: "🇩🇪"},
	"el":    {Name: "Greek", Native: "Ελληνικά", Flag: "🇬🇷"},
	"en":    {Name: "English", Native: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Native: "English (UK)", Flag: "🇬🇧"},
	"es":    {Name: "Spanish", Native: "Español", Flag: "🇪🇸"},
	"fi":    {Name: "Finnish", Native: "Suomi", Flag: "🇫🇮"},
	"fr":    {Name: "French", Native: "Français", Flag: "🇫🇷"},
	"he":    {Name: "Hebrew", Native: "עברית", Flag: "🇮🇱"},
	"hi":    {Name: "Hindi", Native: "हिन्दी", Flag: "🇮🇳"},
	"hu":    {Name: "Hungarian", Native: "Magyar", Flag: "🇭🇺"},
	"id":    {Name: "Indonesian", Native: "Bahasa Indonesia", Flag: "🇮🇩"},
	"it":    {Name: "Italian", Native: "Italiano", Flag: "🇮🇹"},
	"ja":    {Name: "Japanese", Native: "日本語", Flag: "🇯🇵"},
	"ko":    {Name: "Korean", Native: "한국어", Flag: "🇰🇷"},
	"nb":    {Name: "Norwegian Bokmål", Native: "Norsk bokmål", Flag: "🇳🇴"},
	"nl":    {Name: "Dutch", Native: "Nederlands", Flag: "🇳🇱"},
	"no":    {Name: "Norwegian", Native: "Norsk", Flag: "🇳🇴"},
	"pl":    {Name: "Polish", Native: "Polski", Flag: "🇵🇱"},
	"pt":    {Name: "Portuguese", Native: "Português", Flag: "🇵🇹"},
	"pt-BR": {Name: "Portuguese (Brazil)", Native: "Português (Brasil)", Flag: "🇧🇷"},
	"ro":    {Name: "Romanian", Native: "Română", Flag: "🇷🇴"},
	"ru":    {Name: "Russian", Native: "Русский", Flag: "🇷🇺"},
	"sk":    {Name: "Slovak", Native: "Slovenčina", Flag: "🇸🇰"},
	"sv":    {Name: "Swedish", Native: "Svenska", Flag: "🇸🇪"},
	"th":    {Name: "Thai", Native: "ไทย", Flag: "🇹🇭"},
	"tr":    {Name: "Turkish", Native: "Türkçe", Flag: "🇹🇷"},
	"uk":    {Name: "Ukrainian", Native: "Українська", Flag: "🇺🇦"},
	"vi":    {Name: "Vietnamese", Native: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":    {Name: "Chinese", Native: "中文", Flag: "🇨🇳"},
	"zh-TW": {Name: "Chinese (Traditional)", Native: "繁體中文", Flag: "🇹🇼"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
// Unknown codes come back with the code itself as the name.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, Native: lang}
}

// Name returns the English name for a language code, falling back to
// the code itself. Prompts use English names so the model always knows
// the target language regardless of code spelling.
func Name(lang string) string {
	return Resolve(lang).Name
}
