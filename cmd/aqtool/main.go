package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"airquality-server/internal/config"
	"airquality-server/internal/db"
	"airquality-server/internal/logging"
	"airquality-server/internal/migrate"
	"airquality-server/internal/modules/airquality"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/export"
	"airquality-server/internal/modules/airquality/report"
	"airquality-server/internal/modules/airquality/repository"
)

const (
	appName = "aqtool"
	version = "dev"
)

const usage = `usage: %s <command> [args]
  migrate                 apply pending schema migrations
  import [-append] <file> replace the stored measurements with a CSV or XLSX
                          dataset, or add to them with -append
  export [flags] <out>    write the computed views to an XLSX workbook
      -year N -station NAME -month N
`

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

func run(ctx context.Context, cfg config.Config, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "migrate", "import", "export":
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}

	conn, err := db.Open(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, conn)
	if err != nil {
		return err
	}

	switch cmd {
	case "migrate":
		fmt.Fprintf(out, "migrations applied: %d\n", len(applied))
		return nil
	case "import":
		return importDataset(ctx, conn, args, out)
	default:
		return exportViews(ctx, cfg, conn, args, out)
	}
}

func importDataset(ctx context.Context, conn *sql.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	appendRows := fs.Bool("append", false, "keep the stored measurements")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import takes exactly one file: %w", errUsage)
	}
	path := fs.Arg(0)

	data, err := dataset.Open(path)
	if err != nil {
		return err
	}
	repo := repository.NewRepository(conn)
	write := repo.ReplaceRecords
	if *appendRows {
		write = repo.InsertRecords
	}
	n, err := write(ctx, data.Records())
	if err != nil {
		return err
	}
	stored, err := repo.GetRecordsCount(ctx)
	if err != nil {
		return fmt.Errorf("count stored records: %w", err)
	}
	fmt.Fprintf(out, "imported %d records from %s (%d stored)\n", n, path, stored)
	return nil
}

func exportViews(ctx context.Context, cfg config.Config, conn *sql.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var sel report.Selection
	fs.IntVar(&sel.Year, "year", 0, "year")
	fs.StringVar(&sel.Station, "station", "", "station name")
	fs.IntVar(&sel.Month, "month", 0, "month 1-12")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("export takes exactly one output path: %w", errUsage)
	}
	if sel.Month < 0 || sel.Month > 12 {
		return fmt.Errorf("month %d out of range: %w", sel.Month, errUsage)
	}

	data, err := airquality.LoadDataset(ctx, cfg, conn)
	if err != nil {
		return err
	}
	views, err := report.Recompute(data, sel)
	if err != nil {
		return err
	}

	path := fs.Arg(0)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(f, views); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(out, "wrote %s (year=%d station=%s month=%d)\n", path, views.Selection.Year, views.Selection.Station, views.Selection.Month)
	return nil
}
