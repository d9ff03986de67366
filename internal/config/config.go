// Package config exposes the global configuration values read from viper.
package config

import (
	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// GoogleBooksAPIKey is the optional API key for the Google Books API.
	GoogleBooksAPIKey string
	// LibraryThingAPIKey is the API key for the LibraryThing common
	// knowledge service (characters and places).
	LibraryThingAPIKey string
	// LibreTranslateURL is the optional LibreTranslate endpoint used to
	// translate synopses; empty disables translation.
	LibreTranslateURL string
	// LibreTranslateAPIKey is the optional key for that endpoint.
	LibreTranslateAPIKey string
	// PreferredLanguage is the language editions and synopses are
	// reconciled towards.
	PreferredLanguage string
)

// InitConfig initializes the global configuration from viper.
func InitConfig() {
	viper.SetDefault("language", "es")
	viper.SetDefault("genres.max", 3)
	viper.SetDefault("facts.max", 5)

	GoogleBooksAPIKey = viper.GetString("googlebooks.apikey")
	LibraryThingAPIKey = viper.GetString("librarything.apikey")
	LibreTranslateURL = viper.GetString("libretranslate.url")
	LibreTranslateAPIKey = viper.GetString("libretranslate.apikey")
	PreferredLanguage = viper.GetString("language")
}
