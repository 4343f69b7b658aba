package main

import (
	"flag"
	"fmt"
	"log"

	"nexart.backend/pkg/crypto"
)

// Generates a raw API key token and the matching argon2id hash, for seeding
// environments where no dashboard is wired up yet. The token prints once;
// only the hash belongs in the database.
func main() {
	prefixLen := flag.Int("prefix-bytes", 6, "random bytes in the lookup prefix")
	secretLen := flag.Int("secret-bytes", 24, "random bytes in the secret")
	flag.Parse()

	if *prefixLen <= 0 || *secretLen <= 0 {
		log.Fatalf("invalid lengths: prefix-bytes=%d secret-bytes=%d", *prefixLen, *secretLen)
	}

	prefix, err := crypto.GenerateRandomToken(*prefixLen)
	if err != nil {
		log.Fatalf("failed to generate prefix: %v", err)
	}
	secret, err := crypto.GenerateRandomToken(*secretLen)
	if err != nil {
		log.Fatalf("failed to generate secret: %v", err)
	}
	hash, err := crypto.HashSecret(secret)
	if err != nil {
		log.Fatalf("failed to hash secret: %v", err)
	}

	fmt.Println("Generated API key")
	fmt.Printf("TOKEN=nx_live_%s.%s\n", prefix, secret)
	fmt.Printf("KEY_PREFIX=%s\n", prefix)
	fmt.Printf("SECRET_HASH=%s\n", hash)
}
