package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"enrollment-docgen/internal/config"
	"enrollment-docgen/internal/domain/model"
	pg "enrollment-docgen/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
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

	studentRepo := pg.NewStudentRepo(pool)

	// Sample students for exercising the submission flow end to end.
	seed := []model.Student{
		{ID: "A123", Name: "Maria Silva", Course: "Engenharia", Email: "maria.silva@example.edu"},
		{ID: "B456", Name: "João Pereira", Course: "Medicina", Phone: "+55 51 99999-0001"},
		{ID: "C789", Name: "Ana Costa", Course: "Direito"},
	}

	for _, s := range seed {
		s := s
		if err := studentRepo.Save(ctx, nil, &s); err != nil {
			log.Fatalf("seed student %s: %v", s.ID, err)
		}
		fmt.Printf("seeded student %s (%s, %s)\n", s.ID, s.Name, s.Course)
	}
}
