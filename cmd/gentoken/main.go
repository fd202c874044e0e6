// SPDX-License-Identifier: MIT

// Command gentoken generates a random API token for the reqwatch daemon.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
)

func main() {
	nBytes := flag.Int("bytes", 32, "Token entropy in bytes")
	quiet := flag.Bool("quiet", false, "Print only the token, for scripting")
	flag.Parse()

	token, err := generateToken(*nBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *quiet {
		fmt.Println(token)
		return
	}
	fmt.Printf("✅ API token generated (%d bytes of entropy):\n", *nBytes)
	fmt.Printf("   🔑 REQWATCH_API_TOKEN=%s\n", token)
	fmt.Printf("   Export it for the daemon and send it as a Bearer token from clients.\n")
}

func generateToken(n int) (string, error) {
	if n < 16 {
		return "", fmt.Errorf("refusing fewer than 16 bytes of entropy, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
