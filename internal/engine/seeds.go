package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SeedPair holds the commit-reveal material for one round. The server seed is
// kept secret until the round resolves; only its hash is published up front.
type SeedPair struct {
	ServerSeed     string `json:"server_seed,omitempty"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`
}

// GenerateServerSeed returns 256 bits of hex-encoded entropy. An entropy
// failure is returned to the caller; round creation must not proceed on it.
func GenerateServerSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %v", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateClientSeed produces a fallback seed for players who don't supply one.
func GenerateClientSeed() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(b), nil
}

// HashSeed is the one-way commitment published before any tick is revealed.
func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// NewSeedPair generates a fresh server seed committed against the given
// client seed and nonce.
func NewSeedPair(clientSeed string, nonce int64) (SeedPair, error) {
	serverSeed, err := GenerateServerSeed()
	if err != nil {
		return SeedPair{}, err
	}
	return SeedPair{
		ServerSeed:     serverSeed,
		ServerSeedHash: HashSeed(serverSeed),
		ClientSeed:     clientSeed,
		Nonce:          nonce,
	}, nil
}

// Committed returns a copy with the server seed withheld, for publication
// while the round is still live.
func (p SeedPair) Committed() SeedPair {
	p.ServerSeed = ""
	return p
}
