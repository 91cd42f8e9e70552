package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dashcast/dashcast/stocks"
	"github.com/dashcast/dashcast/table"
	"github.com/spf13/cobra"
)

func stocksCmd() *cobra.Command {
	var (
		ticker   string
		start    string
		end      string
		csvPath  string
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "stocks",
		Short: "Fetch daily prices of a ticker and print summary statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			startT, err := time.Parse(time.DateOnly, start)
			if err != nil {
				return fmt.Errorf("--start must be formatted as YYYY-MM-DD, %w", stocks.ErrInvalidRange)
			}
			endT := time.Now()
			if end != "" {
				if endT, err = time.Parse(time.DateOnly, end); err != nil {
					return fmt.Errorf("--end must be formatted as YYYY-MM-DD, %w", stocks.ErrInvalidRange)
				}
			}

			symbol := strings.ToUpper(strings.TrimSpace(ticker))
			client := stocks.NewClient(log, cfg.Stocks)
			prices, err := client.HistoricalPrices(cmd.Context(), symbol, startT, endT)
			if err != nil {
				return err
			}
			tbl := stocks.ToTable(prices)

			if csvPath != "" {
				if err := writeTableFile(csvPath, tbl.WriteCSV); err != nil {
					return err
				}
			}
			if xlsxPath != "" {
				if err := writeTableFile(xlsxPath, tbl.WriteXLSX); err != nil {
					return err
				}
			}

			summary, err := tbl.Describe()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d trading days from %s to %s\n\n", symbol, len(prices),
				prices[0].Date.Format(time.DateOnly), prices[len(prices)-1].Date.Format(time.DateOnly))
			return printTable(out, summary)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&ticker, "ticker", "t", "", "ticker symbol such as AAPL")
	flags.StringVar(&start, "start", "2020-01-01", "first day, YYYY-MM-DD")
	flags.StringVar(&end, "end", "", "last day, YYYY-MM-DD (default today)")
	flags.StringVar(&csvPath, "csv", "", "write the prices to this CSV file")
	flags.StringVar(&xlsxPath, "xlsx", "", "write the prices to this XLSX file")
	_ = cmd.MarkFlagRequired("ticker")
	return cmd
}

func writeTableFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printTable(out io.Writer, t *table.Table) error {
	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t")+"\t")
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t")+"\t")
	}
	return w.Flush()
}
