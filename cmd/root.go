package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/avelardo/librario/cmd/ingest"
	"github.com/avelardo/librario/internal/config"
)

var (
	runIngest = ingest.Run
	showBook  = ingest.Show
)

// CLI represents the complete command structure for the librario application
type CLI struct {
	// Global flags
	CatalogDB  string `help:"Path to catalog SQLite database file" default:"./librario.db"`
	StorageDir string `help:"Directory for stored documents and covers" default:"./storage"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Ingest IngestCmd `cmd:"" help:"Reconcile and store metadata for one book"`
	Show   ShowCmd   `cmd:"" help:"Print the stored record for a book"`
}

// IngestCmd represents the ingest command
type IngestCmd struct {
	ISBN     string `arg:"" help:"ISBN-10 or ISBN-13 of the book"`
	Title    string `short:"t" help:"Title override, also widens the search when the ISBN finds nothing"`
	Author   string `short:"a" help:"Author override"`
	Document string `short:"d" help:"Path to a source document to store alongside the record"`
	Force    bool   `short:"f" help:"Re-run the pipeline even if the book is already in the catalog"`
}

// ShowCmd represents the show command
type ShowCmd struct {
	ISBN string `arg:"" help:"ISBN-10 or ISBN-13 of the book"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("librario"),
		kong.Description("A tool to reconcile book metadata from multiple sources into one catalog."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	if err := ctx.Run(&cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days

	viper.SetDefault("language", "es")
	viper.SetDefault("genres.max", 3)
	viper.SetDefault("facts.max", 5)

	viper.AutomaticEnv()
	for key, env := range map[string]string{
		"googlebooks.apikey":    "GOOGLE_BOOKS_API_KEY",
		"librarything.apikey":   "LIBRARYTHING_API_KEY",
		"libretranslate.url":    "LIBRETRANSLATE_URL",
		"libretranslate.apikey": "LIBRETRANSLATE_API_KEY",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "error", err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("Config file not found, writing default config file...")
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Error("Error writing config file", "error", err)
			}
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
}

// Run methods for each command

func (i *IngestCmd) Run(cli *CLI) error {
	opts := ingest.Options{
		ISBN:           i.ISBN,
		TitleOverride:  i.Title,
		AuthorOverride: i.Author,
		DocumentPath:   i.Document,
		Force:          i.Force,
		CatalogDB:      cli.CatalogDB,
		StorageDir:     cli.StorageDir,
	}
	return runIngest(context.Background(), opts)
}

func (s *ShowCmd) Run(cli *CLI) error {
	return showBook(s.ISBN, cli.CatalogDB)
}

func initLogging() {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: slog.LevelInfo,
	})

	slog.SetDefault(slog.New(handler))
}
