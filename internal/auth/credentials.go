// Package auth is the credential-checking collaborator. It verifies
// usernames against bcrypt hashes loaded from a YAML file and manages
// opaque session tokens. The core only ever sees the resolved username;
// no password material crosses that boundary.
package auth

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Credential is one user's entry in the credentials file.
type Credential struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

// CredentialsFile is the on-disk format: username -> credential.
type CredentialsFile struct {
	Users map[string]Credential `yaml:"users"`
}

// Authenticator checks passwords against the loaded credentials.
type Authenticator struct {
	users map[string]Credential
}

// LoadCredentials reads and parses the YAML credentials file.
func LoadCredentials(path string) (*Authenticator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var file CredentialsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	if len(file.Users) == 0 {
		return nil, fmt.Errorf("credentials file %s has no users", path)
	}
	return &Authenticator{users: file.Users}, nil
}

// NewAuthenticator builds an authenticator from an in-memory credential
// set. Used by tests and by callers that manage credentials themselves.
func NewAuthenticator(users map[string]Credential) *Authenticator {
	return &Authenticator{users: users}
}

// dummyHash is a valid bcrypt hash compared against for unknown users,
// so lookups take similar time whether the username exists or not.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Verify reports whether the password matches the stored hash for
// username. Unknown users and wrong passwords are indistinguishable.
func (a *Authenticator) Verify(username, password string) bool {
	cred, ok := a.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) == nil
}

// DisplayName returns the configured display name, falling back to the
// username.
func (a *Authenticator) DisplayName(username string) string {
	if cred, ok := a.users[username]; ok && cred.Name != "" {
		return cred.Name
	}
	return username
}

// HashPassword produces a bcrypt hash suitable for the credentials file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
