// Command token mints a signed identity token for local testing.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"realtime-scoring-backend/config"
	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/models"
)

func main() {
	user := flag.String("user", "", "user id to sign (empty mints an anonymous identity)")
	anon := flag.Bool("anon", false, "mark the identity as anonymous")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	issuer := identity.NewIssuer(cfg.JWTSecret)

	var (
		id    models.Identity
		token string
	)
	if *user == "" {
		id, token, err = issuer.MintAnonymous()
	} else {
		id = models.Identity{UserID: *user, Anonymous: *anon}
		token, err = issuer.Issue(id, *ttl)
	}
	if err != nil {
		slog.Error("sign token failed", "error", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "user=%s anonymous=%t\n", id.UserID, id.Anonymous)
	fmt.Println(token)
}
