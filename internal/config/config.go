package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	RoomSecretsPlaintext = "plaintext"
	RoomSecretsBcrypt    = "bcrypt"
)

type Config struct {
	ServerAddr     string
	StoreDriver    string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	RoomSecrets    string
	RenameWindow   time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("signing secret is empty")
	}
	return key, nil
}

func NewConfig(serverAddr, storeDriver, databaseDSN, base64Secret string, allowedOrigins []string, roomSecrets string, renameWindow time.Duration) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	switch storeDriver {
	case StoreMemory:
	case StorePostgres:
		if databaseDSN == "" {
			return nil, fmt.Errorf("database DSN cannot be empty")
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", storeDriver)
	}

	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if roomSecrets == "" {
		roomSecrets = RoomSecretsPlaintext
	}
	if roomSecrets != RoomSecretsPlaintext && roomSecrets != RoomSecretsBcrypt {
		return nil, fmt.Errorf("unknown room secrets mode %q", roomSecrets)
	}

	if renameWindow < 0 {
		return nil, fmt.Errorf("rename window cannot be negative")
	}

	return &Config{
		ServerAddr:     serverAddr,
		StoreDriver:    storeDriver,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		RoomSecrets:    roomSecrets,
		RenameWindow:   renameWindow,
	}, nil
}
