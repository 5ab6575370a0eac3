// Command issue-token prints a signed bearer token for local testing:
//
//	RIDEHAIL_JWT_SECRET=... go run ./cmd/issue-token -user rider-1 -role rider
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ridehail/internal/auth"
	"ridehail/internal/config"
	"ridehail/internal/services"
)

func main() {
	userID := flag.String("user", "", "user id to put in the sub claim")
	roleFlag := flag.String("role", "", "rider, driver or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to RIDEHAIL_TOKEN_TTL)")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -user <id> -role <rider|driver|admin> [-ttl 1h]")
		os.Exit(2)
	}
	role, ok := services.ParseRole(*roleFlag)
	if !ok {
		log.Fatalf("unknown role %q", *roleFlag)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *ttl > 0 {
		cfg.Auth.TokenTTL = *ttl
	}

	tokens, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}
	token, err := tokens.Issue(*userID, string(role))
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
