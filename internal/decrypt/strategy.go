package decrypt

import (
	"context"
	"errors"
)

// Strategy decrypts an encrypted PDF payload with a caller-supplied password.
// Implementations own all tool-invocation details; callers depend only on
// this contract.
type Strategy interface {
	Decrypt(ctx context.Context, encrypted []byte, password string) ([]byte, error)
}

var (
	ErrWrongPassword   = errors.New("failed to decrypt PDF: incorrect password")
	ErrCorruptedFile   = errors.New("failed to decrypt PDF: corrupted file")
	ErrToolUnavailable = errors.New("decryption tool is not available")
	ErrInvalidInput    = errors.New("invalid input: expected a non-empty byte sequence")
)
