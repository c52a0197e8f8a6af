package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiona-trading/fiona/journal"
	"github.com/fiona-trading/fiona/trade"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the trade journal",
	Long: `Query the SQLite journal.

Examples:
  fiona journal --db fiona.db open
  fiona journal --db fiona.db trade <trade_id>
  fiona journal --db fiona.db day 2024-03-05`,
}

var journalOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "List open shadow trades",
	RunE:  runJournalOpen,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade_id>",
	Short: "Show one shadow trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List shadow trades closed on a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOpenCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVar(&journalDBPath, "db", "fiona.db", "path to the SQLite journal")
}

func openSQLiteJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", journalDBPath, err)
	}
	return j, nil
}

func runJournalOpen(cmd *cobra.Command, args []string) error {
	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.ListOpenShadowTrades()
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("no open shadow trades")
		return nil
	}
	for _, t := range trades {
		printShadowTrade(t)
	}
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	t, err := j.GetShadowTrade(args[0])
	if err != nil {
		return err
	}
	printShadowTrade(t)
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	day, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("bad date %q, expected YYYY-MM-DD", args[0])
	}

	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.ListShadowTradesClosedBetween(day, day.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Printf("no shadow trades closed on %s\n", args[0])
		return nil
	}

	total := 0.0
	for _, t := range trades {
		printShadowTrade(t)
		if t.TheoreticalPnl != nil {
			total += *t.TheoreticalPnl
		}
	}
	fmt.Printf("\n%d trades, theoretical P&L %.2f\n", len(trades), total)
	return nil
}

func printShadowTrade(t trade.ShadowTrade) {
	fmt.Printf("%s  %-5s %-6s size=%.1f entry=%.2f", t.ID, t.Direction, t.Status, t.Size, t.EntryPrice)
	if t.ExitPrice != nil {
		fmt.Printf(" exit=%.2f (%s)", *t.ExitPrice, t.ExitReason)
	}
	if t.TheoreticalPnl != nil {
		fmt.Printf(" pnl=%.2f", *t.TheoreticalPnl)
	}
	if t.SkipReason != "" {
		fmt.Printf("  [%s]", t.SkipReason)
	}
	fmt.Println()
}
