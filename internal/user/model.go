// Package user holds accounts, roles and password verification. There
// are two roles; whether a role may perform a privileged operation is
// decided by a static capability table.
package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Capabilities gating privileged operations.
const (
	CapManageUsers  = "manage_users"
	CapDeleteClient = "delete_client"
	CapViewHistory  = "view_history"
	CapWipeHistory  = "wipe_history"
	CapClearCache   = "clear_cache"
)

var capabilities = map[string]map[string]bool{
	RoleAdmin: {
		CapManageUsers:  true,
		CapDeleteClient: true,
		CapViewHistory:  true,
		CapWipeHistory:  true,
		CapClearCache:   true,
	},
	RoleMember: {},
}

// RoleAllows reports whether the role carries the capability.
func RoleAllows(role, capability string) bool {
	return capabilities[role][capability]
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

// User is one account. Salt and Hash are hex strings.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Salt     string `json:"salt"`
	Hash     string `json:"hash"`
}

// SafeUser is the wire form without credential material.
type SafeUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (u User) Safe() SafeUser {
	return SafeUser{Username: u.Username, Role: u.Role}
}

const (
	pbkdf2Iterations = 100_000
	pbkdf2KeyLen     = sha256.Size
	saltBytes        = 16
)

// HashPassword derives a PBKDF2-SHA256 hash, generating a fresh salt
// when saltHex is empty. Returns salt and hash as hex.
func HashPassword(password, saltHex string) (string, string, error) {
	if saltHex == "" {
		raw := make([]byte, saltBytes)
		if _, err := rand.Read(raw); err != nil {
			return "", "", err
		}
		saltHex = hex.EncodeToString(raw)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", "", err
	}
	dk := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return saltHex, hex.EncodeToString(dk), nil
}

// VerifyPassword re-derives the hash and compares in constant time.
func VerifyPassword(password, saltHex, hashHex string) bool {
	_, derived, err := HashPassword(password, saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}
	got, _ := hex.DecodeString(derived)
	return hmac.Equal(got, want)
}
