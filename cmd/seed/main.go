// Package main seeds the database with demo entities and saves, then prints
// a bearer token for every saver it created.
//
// Usage:
//
//	go run ./cmd/seed -users 3 -posts 10 -- -db-path ~/Saveable/saveable.db
//
// Arguments after -- are passed to the server configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/saveable/internal/auth"
	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/di"
	"github.com/listenupapp/saveable/internal/di/providers"
	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/service"
)

func main() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	users := fs.Int("users", 3, "Number of users to create")
	teams := fs.Int("teams", 1, "Number of teams to create")
	posts := fs.Int("posts", 10, "Number of posts to create")
	videos := fs.Int("videos", 5, "Number of videos to create")
	perSaver := fs.Int("saves", 4, "Saves per saver")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs.Args())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	injector := di.NewContainer()
	do.OverrideValue(injector, cfg)
	if err := di.Core(injector); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := injector.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	ctx := context.Background()
	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	saves := do.MustInvoke[*service.SaveService](injector)
	collections := do.MustInvoke[*service.CollectionService](injector)
	tokens := do.MustInvoke[*auth.TokenService](injector)
	registry := do.MustInvoke[*morph.Registry](injector)

	fmt.Printf("Seeding database at: %s\n", cfg.Database.Path)

	create := func(typ, label string, n int) []domain.Entity {
		h := storeHandle.EntityHandler(typ)
		out := make([]domain.Entity, 0, n)
		for i := range n {
			r, err := h.Create(ctx, fmt.Sprintf("%s %d", label, i+1))
			if err != nil {
				log.Fatalf("Failed to create %s: %v", typ, err)
			}
			out = append(out, r)
		}
		return out
	}

	userRecs := create("app.User", "User", *users)
	teamRecs := create("app.Team", "Team", *teams)
	saveables := append(create("app.Post", "Post", *posts), create("app.Video", "Video", *videos)...)
	fmt.Printf("Created %d users, %d teams, %d saveables\n", len(userRecs), len(teamRecs), len(saveables))

	savers := append(userRecs, teamRecs...)
	for _, saver := range savers {
		favorites, err := collections.CreateCollection(ctx, saver, "Favorites", "", nil)
		if err != nil {
			log.Fatalf("Failed to create collection: %v", err)
		}

		created := 0
		for i, idx := range rand.Perm(len(saveables)) {
			if i >= *perSaver {
				break
			}
			opts := service.SaveOptions{}
			if i%2 == 0 {
				opts.Collection = favorites
			}
			ok, err := saves.Save(ctx, saver, saveables[idx], opts)
			if err != nil {
				log.Fatalf("Failed to save: %v", err)
			}
			if ok {
				created++
			}
		}

		ref := registry.Ref(saver)
		token, expires, err := tokens.Issue(ref)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Printf("\n%s (%d saves, expires %s)\n  %s\n", ref, created, expires.Format("2006-01-02"), token)
	}

	fmt.Println("\nSeeding complete")
}
