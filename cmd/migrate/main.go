// Command migrate applies the SQL files in a migrations directory, one
// transaction per file, in lexical order.
//
// Usage:
//
//	DATABASE_URL=postgres://... migrate [dir] [--list]
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
)

// migrationFiles returns the non-empty .sql files of dir, sorted.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs each file in its own transaction. A failing file is rolled
// back and counted; the rest still run.
func apply(ctx context.Context, db *sql.DB, files []string) (ok, failed int, err error) {
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return ok, failed, fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		log := logger.With("file", filepath.Base(path))

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			log.Error("begin failed", "error", err.Error())
			failed++
			continue
		}
		if _, err := tx.ExecContext(ctx, content); err != nil {
			tx.Rollback()
			log.Error("migration failed", "error", err.Error())
			failed++
			continue
		}
		if err := tx.Commit(); err != nil {
			log.Error("commit failed", "error", err.Error())
			failed++
			continue
		}
		log.Info("migration applied")
		ok++
	}
	return ok, failed, nil
}

// listTables returns the tables this service owns.
func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename LIKE 'report_%' ORDER BY tablename")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err.Error())
	os.Exit(1)
}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fatal("connect", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fatal("ping", err)
	}

	if listOnly {
		tables, err := listTables(ctx, db)
		if err != nil {
			fatal("list tables", err)
		}
		for _, t := range tables {
			fmt.Println(" ", t)
		}
		fmt.Printf("Total: %d tables\n", len(tables))
		return
	}

	files, err := migrationFiles(dir)
	if err != nil {
		fatal("migrations", err)
	}
	ok, failed, err := apply(ctx, db, files)
	if err != nil {
		fatal("migrations", err)
	}
	logger.Info("migrations complete", "ok", ok, "errors", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
