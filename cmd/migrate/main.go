package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"ms-registration/internal/config"
	"ms-registration/internal/database"
	"ms-registration/internal/database/migrations"
	"ms-registration/internal/logger"
)

const usage = `usage: migrate [flags] <command>

commands:
  run        apply schema migrations, and demo data with -seed
  up         apply every migration
  down       roll back every migration
  to N       migrate up or down to version N
  version    print the applied version

flags:
`

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	dir := flag.String("dir", cfg.Migrations.Dir, "migrations directory")
	dsn := flag.String("dsn", cfg.Database.DSN, "PostgreSQL DSN")
	seed := flag.Bool("seed", cfg.Migrations.Seed, "include demo data migrations with run")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.NewWithWriter(os.Stdout)
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	sqldb := database.OpenPostgres(*dsn)
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}

	runner := migrations.NewRunner(sqldb, migrations.Options{Dir: *dir, Seed: *seed}, log)
	defer runner.Close()

	if err := run(runner, flag.Args(), log); err != nil {
		log.Error("MIGRATE", err.Error())
		runner.Close()
		os.Exit(1)
	}
}

func run(runner *migrations.Runner, args []string, log *logger.Logger) error {
	switch args[0] {
	case "run":
		return runner.Run()
	case "up":
		if err := runner.Up(); err != nil {
			return err
		}
	case "down":
		if err := runner.Down(); err != nil {
			return err
		}
	case "to":
		if len(args) < 2 {
			return fmt.Errorf("to needs a version")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := runner.To(uint(version)); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	version, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	log.Info("MIGRATE", fmt.Sprintf("version %d (dirty: %t)", version, dirty))
	return nil
}
