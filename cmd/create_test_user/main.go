package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"illyrian_project/internal/config"
	"illyrian_project/internal/db"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/repository"
	"illyrian_project/internal/service"
)

// Creates an account in the configured Postgres store and prints a token for it.
func main() {
	username := flag.String("username", "testuser", "username of the new account")
	email := flag.String("email", "", "email of the new account (default <username>@example.com)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatal("create_test_user needs STORE_DRIVER=postgres")
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	service.InitJWT(cfg.JWTSecret)

	pool := db.Connect(cfg.Database.URL)
	defer pool.Close()

	if *email == "" {
		*email = *username + "@example.com"
	}

	accounts := service.NewAccountService(repository.NewUserRepository(pool), nil, nil, nil)
	u, err := accounts.Signup(context.Background(), uuid.NewString(), *email, *username)
	if err != nil {
		log.Fatalf("signup failed: %v", err)
	}
	log.Printf("user created id=%s username=%s referral_code=%s\n", u.ID, u.Username, u.ReferralCode)

	token, err := service.GenerateJWT(u.ID, u.Email, *ttl)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
