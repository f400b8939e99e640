// Command tokenguard-migrate applies the engine's schema migrations to the
// configured Postgres database and verifies connectivity.
//
// The database DSN is taken from -database-url, falling back to the
// DATABASE_URL environment variable (or a .env file in the working
// directory, the same loading rules the engine itself uses).
//
// Usage:
//
//	tokenguard-migrate [-database-url postgres://...] [-check]
//
// With -check the command only pings the database and reports the pool
// settings without applying anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/MrEthical07/tokenguard/store"
)

func main() {
	var (
		databaseURL = flag.String("database-url", "", "postgres DSN; if empty, DATABASE_URL env or .env is used")
		checkOnly   = flag.Bool("check", false, "ping the database without applying migrations")
		timeout     = flag.Duration("timeout", 30*time.Second, "overall deadline")
	)
	flag.Parse()

	dsn := *databaseURL
	if dsn == "" {
		dsn = dsnFromEnv()
	}
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "no database DSN: set -database-url or DATABASE_URL")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := store.NewPool(ctx, store.PoolConfig{
		DSN:             dsn,
		MaxConnections:  2,
		MinConnections:  1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "database unreachable: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if *checkOnly {
		fmt.Println("database reachable")
		return
	}

	if err := store.Migrate(dsn); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrations applied")
}

func dsnFromEnv() string {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	return v.GetString("DATABASE_URL")
}
