// Command devtoken mints a bearer token for local development, signed with
// JWT_SECRET from the environment or .env file.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmynk/hearth/internal/auth"
	"github.com/mmynk/hearth/internal/config"
)

func main() {
	user := flag.String("user", "", "user id (token subject)")
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "email address")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "devtoken: -user is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	m, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}

	token, err := m.Generate(auth.Identity{UserID: *user, Name: *name, Email: *email}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
