package main

import (
	"log"

	"resume-screener/internal/config"
	"resume-screener/internal/models"
	"resume-screener/internal/repositories"
)

// Seeds a default weighted rubric and a sample job posting so a fresh
// database can evaluate candidates immediately.
func main() {
	cfg := config.Load()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	criteriaRepo := repositories.NewCriteriaRepository(db)
	jobRepo := repositories.NewJobRepository(db)

	existing, err := criteriaRepo.FindActive()
	if err != nil {
		log.Fatalf("failed to check existing criteria: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("found %d active criteria, skipping seed", len(existing))
		return
	}

	criteria := []models.EvaluationCriterion{
		{Name: "Technical Skills Match", Weight: 0.40, Description: "Alignment of technical skills with the job requirements", Active: true, SortOrder: 1},
		{Name: "Experience Level", Weight: 0.25, Description: "Years of experience and complexity of past roles", Active: true, SortOrder: 2},
		{Name: "Relevant Achievements", Weight: 0.20, Description: "Measurable impact of past work", Active: true, SortOrder: 3},
		{Name: "Communication & Collaboration", Weight: 0.15, Description: "Teamwork, leadership and learning mindset signals", Active: true, SortOrder: 4},
	}

	for i := range criteria {
		if err := criteriaRepo.Create(&criteria[i]); err != nil {
			log.Fatalf("failed to seed criterion %q: %v", criteria[i].Name, err)
		}
	}
	log.Printf("seeded %d evaluation criteria", len(criteria))

	job := models.JobPosting{
		Title:            "Backend Engineer",
		Requirements:     "3+ years of backend development, Go or a comparable language, relational databases, REST APIs, cloud deployments.",
		Responsibilities: "Design and operate backend services, own features end to end, collaborate with product and platform teams.",
	}
	if err := jobRepo.Create(&job); err != nil {
		log.Fatalf("failed to seed job posting: %v", err)
	}
	log.Printf("seeded job posting %d (%s)", job.ID, job.Title)
}
