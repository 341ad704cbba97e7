package main

import (
	"babble/repositories"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH"`
	LogLevel       string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Inspect failed: %v\n", err)
		os.Exit(1)
	}
}

// run dumps the publication archive of a stopped or running server as a table.
func run(args []string, out io.Writer) error {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	flagSet := pflag.NewFlagSet("babble-inspect", pflag.ContinueOnError)
	defaultPath := config.BadgerFilepath
	if defaultPath == "" {
		defaultPath = database.DefaultPath
	}
	dbPath := flagSet.String("db", defaultPath, "path to the badger archive")
	limit := flagSet.IntP("limit", "n", 0, "maximum number of publications, 0 for all")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repository := repositories.NewPublicationRepository(db, logs.GetLoggerFromString(config.LogLevel))
	return dump(repository, *limit, out)
}

// dump renders at most limit publications, every one when limit is not positive.
func dump(repository repositories.IPublicationRepository, limit int, out io.Writer) error {
	var maxRows *int
	if limit > 0 {
		maxRows = &limit
	}
	publications, err := repository.List(maxRows)
	if err != nil {
		return err
	}
	render(out, publications)
	return nil
}

func render(out io.Writer, publications []repositories.DiskPublication) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Fine", "At", "Author", "Key", "Coarse", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, p := range publications {
		table.Append([]string{
			strconv.FormatInt(p.Fine, 10),
			time.Unix(0, p.Fine).UTC().Format("15:04:05.000"),
			p.Author,
			strconv.FormatUint(p.Key, 10),
			strconv.FormatInt(p.Coarse, 10),
			p.Content,
		})
	}
	table.Render()
}
