package speech

// RandomPreference makes every utterance pick its own language.
const RandomPreference = "random"

const fallbackLocale = "en-US"

// Language pairs a content language code with its announcement locale.
type Language struct {
	Code   string `mapstructure:"code" yaml:"code"`
	Locale string `mapstructure:"locale" yaml:"locale"`
}

var DefaultLanguages = []Language{
	{Code: "en", Locale: "en-US"},
	{Code: "fr", Locale: "fr-FR"},
	{Code: "es", Locale: "es-ES"},
	{Code: "zh", Locale: "zh-CN"},
	{Code: "ja", Locale: "ja-JP"},
	{Code: "ru", Locale: "ru-RU"},
}

func localeFor(languages []Language, code string) string {
	for _, l := range languages {
		if l.Code == code {
			return l.Locale
		}
	}
	return fallbackLocale
}
