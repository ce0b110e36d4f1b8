package main

import (
	"flag"
	"fmt"
	"log"

	"daily-flip/internal/auth"
	"daily-flip/internal/config"
)

// Mints a JWT for the admin endpoints. Run on the server host; the token
// is printed to stdout and never stored.
func main() {
	wallet := flag.String("wallet", "", "wallet address to embed in the token")
	admin := flag.Bool("admin", true, "grant the admin claim")
	flag.Parse()

	if *wallet == "" {
		log.Fatal("-wallet is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	auth.InitJWT(cfg.App.JWTSecret)

	token, err := auth.GenerateToken(*wallet, *admin)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
