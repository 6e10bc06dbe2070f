package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"heard-backend/internal/common/config"
	lettersModels "heard-backend/internal/features/letters/models"
	lettersRepo "heard-backend/internal/features/letters/repository/supabase"
	"heard-backend/internal/platform/supabase"
)

var categoryNames = []string{
	"Confessions",
	"Relationships",
	"Family",
	"Work",
	"Mental Health",
	"Gratitude",
}

var sampleLetters = []struct {
	title    string
	content  string
	category string
}{
	{
		title:    "I finally said it out loud",
		content:  "After years of keeping it to myself, I told my best friend how much their support has meant to me. I don't know why it took so long.",
		category: "Gratitude",
	},
	{
		title:    "Starting over at 34",
		content:  "I quit the job that was grinding me down. No plan, just a little savings and a lot of fear. Writing it here makes it feel real.",
		category: "Work",
	},
	{
		title:    "To the sister I never call",
		content:  "We talk maybe twice a year and every time I hang up I promise myself it will be different. This letter is a promise I intend to keep.",
		category: "Family",
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := supabase.New(supabase.Config{
		ProjectURL:  cfg.Supabase.ProjectURL,
		APIKey:      cfg.Supabase.APIKey,
		HTTPTimeout: cfg.Supabase.HTTPTimeout,
	})
	if err != nil {
		log.Fatalf("failed to create supabase client: %v", err)
	}

	repo := lettersRepo.NewLetterRepository(client)

	categories, err := ensureCategories(ctx, client, repo)
	if err != nil {
		log.Fatalf("failed to seed categories: %v", err)
	}
	fmt.Printf("categories ready: %d\n", len(categories))

	byName := make(map[string]string, len(categories))
	for _, c := range categories {
		byName[c.Name] = c.ID
	}

	seeded := 0
	for _, s := range sampleLetters {
		categoryID, ok := byName[s.category]
		if !ok {
			log.Printf("skipping %q: unknown category %q", s.title, s.category)
			continue
		}
		now := time.Now().UTC()
		letter := &lettersModels.Letter{
			ID:          uuid.NewString(),
			AuthorID:    seedAuthorID(ctx, client),
			DisplayName: "Anonymous",
			Title:       s.title,
			Content:     s.content,
			CategoryID:  categoryID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Insert(ctx, letter); err != nil {
			log.Printf("failed to insert %q: %v", s.title, err)
			continue
		}
		seeded++
	}
	fmt.Printf("seeded %d letters\n", seeded)
}

// ensureCategories inserts any missing category rows and returns the
// full set.
func ensureCategories(ctx context.Context, client *supabase.Client, repo *lettersRepo.LetterRepository) ([]lettersModels.Category, error) {
	existing, err := repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.Name] = true
	}

	for _, name := range categoryNames {
		if have[name] {
			continue
		}
		body, _ := json.Marshal(lettersModels.Category{ID: uuid.NewString(), Name: name})
		if _, err := client.Insert(ctx, "categories", body); err != nil {
			return nil, err
		}
	}
	return repo.ListCategories(ctx)
}

// seedAuthorID picks an existing profile to own seeded letters, or a
// random id when the profiles table is empty.
func seedAuthorID(ctx context.Context, client *supabase.Client) string {
	data, err := client.Select(ctx, "user_profiles", "select=id&limit=1")
	if err != nil {
		return uuid.NewString()
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return uuid.NewString()
	}
	return rows[0].ID
}
