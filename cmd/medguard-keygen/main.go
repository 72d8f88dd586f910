// Command medguard-keygen prints a fresh 256-bit field-encryption key as hex,
// suitable for fieldcipher.NewStaticKey and for the MEDGUARD_FIELD_KEY
// environment variable of a deployment.
//
// Run:
//
//	go run ./cmd/medguard-keygen
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hex.EncodeToString(key))
}
