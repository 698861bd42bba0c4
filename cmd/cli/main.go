package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmoroney/saverdash/internal/balance"
	"github.com/dmoroney/saverdash/internal/logger"
	"github.com/dmoroney/saverdash/internal/snapshot"
	"github.com/dmoroney/saverdash/internal/upbank"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ping":
		runPing(log)
	case "accounts":
		runAccounts(log)
	case "series":
		runSeries(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Saverdash CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  ping      Validate the Up token against the API")
	fmt.Println("  accounts  List saver accounts and their balances")
	fmt.Println("  series    Compute a windowed balance series")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nAll commands read the token from UP_TOKEN or -token.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func newClient(log zerolog.Logger, token string) *upbank.Client {
	client, err := upbank.NewClient(token, upbank.WithLogger(logger.WithComponent(log, "upbank")))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid Up token")
	}
	return client
}

func runPing(log zerolog.Logger) {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	token := fs.String("token", os.Getenv("UP_TOKEN"), "Up personal access token")
	fs.Parse(os.Args[2:])

	if *token == "" {
		log.Fatal().Msg("Error: -token or UP_TOKEN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := newClient(log, *token)
	if err := client.Ping(ctx); err != nil {
		if upbank.IsAuthError(err) {
			log.Fatal().Err(err).Msg("Token rejected - generate a new personal access token")
		}
		log.Fatal().Err(err).Msg("Ping failed")
	}

	fmt.Println("Token is valid.")
}

func runAccounts(log zerolog.Logger) {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	token := fs.String("token", os.Getenv("UP_TOKEN"), "Up personal access token")
	all := fs.Bool("all", false, "Include non-saver accounts")
	fs.Parse(os.Args[2:])

	if *token == "" {
		log.Fatal().Msg("Error: -token or UP_TOKEN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := newClient(log, *token)
	accounts, err := client.Accounts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch accounts")
	}
	if !*all {
		accounts = upbank.SaverAccounts(accounts)
	}

	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return
	}

	fmt.Printf("%-38s %-24s %-6s %12s\n", "ID", "NAME", "TYPE", "BALANCE")
	for _, acct := range accounts {
		fmt.Printf("%-38s %-24s %-6s %12s\n", acct.ID, acct.DisplayName, acct.AccountType, acct.Balance.Value)
	}
}

func runSeries(log zerolog.Logger) {
	fs := flag.NewFlagSet("series", flag.ExitOnError)
	var (
		token     = fs.String("token", os.Getenv("UP_TOKEN"), "Up personal access token")
		accounts  = fs.String("accounts", "", "Comma-separated account IDs (default: every saver)")
		timeframe = fs.String("timeframe", "Monthly", "Weekly, Monthly or Yearly")
		reference = fs.String("reference", "", "Anchor date YYYY-MM-DD (default: today)")
		timezone  = fs.String("timezone", "UTC", "Time zone for calendar-date bucketing")
		asJSON    = fs.Bool("json", false, "Print the series as JSON")
	)
	fs.Parse(os.Args[2:])

	if *token == "" {
		log.Fatal().Msg("Error: -token or UP_TOKEN is required")
	}

	tf, err := balance.ParseTimeframe(*timeframe)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timeframe")
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", *timezone).Msg("Unknown time zone")
	}

	ref := time.Now().In(loc)
	if *reference != "" {
		ref, err = time.ParseInLocation("2006-01-02", *reference, loc)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid reference date, want YYYY-MM-DD")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client := newClient(log, *token)

	snap, err := snapshot.Fetch(ctx, client, upbank.TransactionOptions{})
	if err != nil {
		if upbank.IsAuthError(err) {
			log.Fatal().Err(err).Msg("Token rejected - generate a new personal access token")
		}
		log.Fatal().Err(err).Msg("Fetch failed")
	}

	selected := make([]string, 0, len(snap.Accounts))
	if *accounts == "" {
		for _, acct := range snap.Accounts {
			selected = append(selected, acct.ID)
		}
	} else {
		for _, id := range strings.Split(*accounts, ",") {
			if id = strings.TrimSpace(id); id != "" {
				selected = append(selected, id)
			}
		}
	}

	series, err := balance.BuildSeries(snap.Accounts, snap.Transactions, selected, tf, ref,
		balance.WithLocation(loc),
		balance.WithLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build series")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(series); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode series")
		}
		return
	}

	if len(series.Dates) == 0 {
		fmt.Println("No data in this period.")
		return
	}
	fmt.Printf("%s series anchored at %s (%d accounts)\n", tf, ref.Format("2006-01-02"), len(selected))
	for i, date := range series.Dates {
		fmt.Printf("%s  %12.2f\n", date, series.Balances[i])
	}
}
