// Seed adds sample tasks to the database. Run from project root: go run ./scripts/seed [count]
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"tasklist/internal/config"
	"tasklist/internal/database"
	"tasklist/internal/models"
	"tasklist/internal/repository"
	"tasklist/internal/schema"
)

func main() {
	config.LoadEnvFile(".env")

	total := 100
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Fprintln(os.Stderr, "count must be a positive integer")
			os.Exit(1)
		}
		total = n
	}

	ctx := context.Background()
	cfg := config.Get()
	db := database.DB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}
	defer db.Close()

	if err := database.MigrateOrCreateSchema(ctx, db, cfg.DatabaseDriver); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	repo := repository.NewTasks(db, cfg.DatabaseDriver)
	start := time.Now()
	for i := 1; i <= total; i++ {
		in, err := schema.CreateTaskSchema.Parse(models.CreateTaskInput{Title: fmt.Sprintf("Task %d", i)})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid seed row:", err)
			os.Exit(1)
		}
		if _, err := repo.Create(ctx, in.Title); err != nil {
			fmt.Fprintln(os.Stderr, "Insert failed:", err)
			os.Exit(1)
		}
		if i%50 == 0 || i == total {
			fmt.Printf("\rInserted %d / %d", i, total)
		}
	}

	fmt.Printf("\nDone: %d tasks in %v\n", total, time.Since(start))
}
