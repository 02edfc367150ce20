package engine

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const saltSize = 32

// HashFunction derives the stored digest of a password from the password
// and its per-account salt.
type HashFunction func(password string, salt []byte) string

// Argon2Hash is the default HashFunction.
func Argon2Hash(password string, salt []byte) string {
	key := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return base64.StdEncoding.EncodeToString(key)
}

func generateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RoomSecrets decides how room passwords are stored and checked.
type RoomSecrets interface {
	Seal(password string) (string, error)
	Match(stored, password string) bool
}

// PlaintextRoomSecrets stores room passwords as given.
//
// TODO: make bcrypt the default once existing plaintext rooms are migrated.
type PlaintextRoomSecrets struct{}

func (PlaintextRoomSecrets) Seal(password string) (string, error) {
	return password, nil
}

func (PlaintextRoomSecrets) Match(stored, password string) bool {
	return digestsEqual(stored, password)
}

type BcryptRoomSecrets struct {
	Cost int
}

func (b BcryptRoomSecrets) Seal(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(hash), err
}

func (BcryptRoomSecrets) Match(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
