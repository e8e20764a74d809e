package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/eugenenazirov/apportionment/internal/apportion"
	"github.com/eugenenazirov/apportionment/internal/dataset"
	"github.com/eugenenazirov/apportionment/internal/logging"
)

var errMismatch = errors.New("allocation differs from expected totals")

type options struct {
	populations string
	expected    string
	seats       int
	bonus       int
	priority    bool
	verbose     bool
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.NewCLI(opts.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(opts, os.Stdout, logger); err != nil {
		logger.Error("apportionment failed", zap.Error(err))
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	var opts options

	app := kingpin.New("apportion", "Apportion seats among subdivisions by the method of equal proportions")
	app.Flag("populations", "CSV or YAML file with subdivision populations").Short('p').Required().StringVar(&opts.populations)
	app.Flag("seats", "Total number of seats to distribute").Default("435").IntVar(&opts.seats)
	app.Flag("bonus", "Seats added to every subdivision for the derived allocation").Default("2").IntVar(&opts.bonus)
	app.Flag("expected", "CSV of published electors to compare against").StringVar(&opts.expected)
	app.Flag("priority", "Also print the order in which seats were assigned").BoolVar(&opts.priority)
	app.Flag("verbose", "Enable debug logging").Short('v').BoolVar(&opts.verbose)

	if _, err := app.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(opts options, out io.Writer, logger *zap.Logger) error {
	subs, err := dataset.Load(opts.populations)
	if err != nil {
		return fmt.Errorf("load populations: %w", err)
	}
	logger.Debug("populations loaded", zap.String("path", opts.populations), zap.Int("subdivisions", len(subs)))

	engine := apportion.New()
	alloc, err := engine.Allocate(subs, opts.seats, opts.bonus)
	if err != nil {
		return err
	}

	var expected map[string]int
	if opts.expected != "" {
		expected, err = dataset.LoadTotals(opts.expected, dataset.ColumnElectors)
		if err != nil {
			return fmt.Errorf("load expected totals: %w", err)
		}
	}

	mismatches, err := writeAllocation(out, alloc, expected)
	if err != nil {
		return fmt.Errorf("render allocation: %w", err)
	}

	if opts.priority {
		populations := make([]int, len(subs))
		for i, s := range subs {
			populations[i] = s.Population
		}
		list, err := engine.PriorityList(populations, opts.seats)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		if err := writePriorityList(out, subs, list); err != nil {
			return fmt.Errorf("render priority list: %w", err)
		}
	}

	if mismatches > 0 {
		logger.Warn("allocation does not match expected totals", zap.Int("mismatches", mismatches))
		return fmt.Errorf("%w: %d subdivisions", errMismatch, mismatches)
	}
	return nil
}

// writeAllocation renders the per-subdivision table and returns how many rows
// disagree with expected.
func writeAllocation(out io.Writer, alloc apportion.Allocation, expected map[string]int) (int, error) {
	table := tablewriter.NewWriter(out)
	headers := []any{"ID", "Population", "Seats", "Electors"}
	if expected != nil {
		headers = append(headers, "Expected")
	}
	table.Header(headers...)

	mismatches := 0
	for _, share := range alloc.Shares {
		row := []string{
			share.ID,
			humanize.Comma(int64(share.Population)),
			strconv.Itoa(share.Seats),
			strconv.Itoa(share.Electors),
		}
		if expected != nil {
			want, ok := expected[share.ID]
			cell := "missing"
			if ok {
				cell = strconv.Itoa(want)
			}
			if !ok || want != share.Electors {
				cell += " *"
				mismatches++
			}
			row = append(row, cell)
		}
		if err := table.Append(row); err != nil {
			return 0, err
		}
	}
	if err := table.Render(); err != nil {
		return 0, err
	}

	fmt.Fprintf(out, "%d seats, %d electors\n", alloc.TotalSeats, alloc.TotalElectors())
	return mismatches, nil
}

func writePriorityList(out io.Writer, subs []apportion.Subdivision, list []apportion.Assignment) error {
	table := tablewriter.NewWriter(out)
	table.Header("Seat", "ID", "Priority")
	for _, a := range list {
		err := table.Append([]string{
			strconv.Itoa(a.Seat),
			subs[a.Index].ID,
			humanize.CommafWithDigits(a.Priority, 2),
		})
		if err != nil {
			return err
		}
	}
	return table.Render()
}
