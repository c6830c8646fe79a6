package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"evoting/contexts/identity-access/identity-binder/domain/entities"
)

const saltBytes = 16

// BindingHash is SHA256(id || fullName || dob || phone || district || salt)
// in lowercase hex. salt is the hex form stored on the identity.
func BindingHash(identity entities.NationalIdentity, salt string) string {
	var b strings.Builder
	b.WriteString(identity.IdentityID)
	b.WriteString(identity.FullName)
	b.WriteString(identity.DateOfBirth)
	b.WriteString(identity.PhoneNumber)
	b.WriteString(identity.DistrictName)
	b.WriteString(salt)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func NewSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
