// Command seed fills the database with demo users, groups, posts and follows.
package main

import (
	"flag"
	"log"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numGroups := flag.Int("groups", 5, "Number of groups to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	numComments := flag.Int("comments", 300, "Number of comments to create")
	follows := flag.Int("follows", 4, "Authors each user follows")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash the shared password with the minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one from the clock")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d groups, %d posts, clean=%v\n", *numUsers, *numGroups, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.Seed(db, seed.Options{
		NumUsers:       *numUsers,
		NumGroups:      *numGroups,
		NumPosts:       *numPosts,
		NumComments:    *numComments,
		FollowsPerUser: *follows,
		ShouldClean:    *shouldClean,
		Factory:        seed.FactoryOptions{SkipBcrypt: *fast, RandSeed: *randSeed},
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d groups, %d posts, %d comments, %d follows",
		res.Users, res.Groups, res.Posts, res.Comments, res.Follows)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
