package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/booking-service/internal/utils"
)

// token prints a signed access token for local testing.
func main() {
	_ = godotenv.Load()
	sub := flag.String("sub", "", "directory user id to put in the sub claim")
	email := flag.String("email", "", "optional email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *sub == "" {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... token -sub <user id> [-email addr] [-ttl 1h]")
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(secret, *sub, *email, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
