// Seeds a small course catalogue for local testing of the payment flow.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/amazingprincelee/backend-collabogig/internal/config"
	pg "github.com/amazingprincelee/backend-collabogig/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	var existing int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM course_templates`).Scan(&existing); err != nil {
		log.Fatalf("count templates: %v", err)
	}
	if existing > 0 {
		fmt.Printf("%d course templates already present. No changes.\n", existing)
		return
	}

	seed := []struct {
		Title string
		Fee   int64
	}{
		{"Frontend Development", 150_000},
		{"Backend Development", 180_000},
		{"Data Analytics", 120_000},
	}

	for _, s := range seed {
		tmplID := uuid.NewString()
		_, err := pool.Exec(ctx,
			`INSERT INTO course_templates (id, title, description, fee) VALUES ($1,$2,$3,$4)`,
			tmplID, s.Title, s.Title+" cohort", s.Fee)
		if err != nil {
			log.Fatalf("insert template %s: %v", s.Title, err)
		}

		groupID := uuid.NewString()
		start := time.Now().AddDate(0, 1, 0)
		_, err = pool.Exec(ctx,
			`INSERT INTO class_groups (id, course_template_id, class_name, start_date, end_date, capacity, learning_mode)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			groupID, tmplID, s.Title+" - Next Batch", start, start.AddDate(0, 3, 0), 50, "online")
		if err != nil {
			log.Fatalf("insert class group for %s: %v", s.Title, err)
		}
		fmt.Printf("seeded %s (template=%s group=%s fee=%d NGN)\n", s.Title, tmplID, groupID, s.Fee)
	}
}
