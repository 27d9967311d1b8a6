package usecase

import (
	"crypto/rand"
	"io"
)

// codeAlphabet avoids ambiguous characters like O/0, I/1, l. Codes are bearer
// secrets handed out over the phone or chat, so misreads matter.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateCode creates a secure random activation code of the given length.
// crypto/rand only; a predictable source would make the code space guessable.
func generateCode(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		buffer[i] = codeAlphabet[int(buffer[i])%len(codeAlphabet)]
	}
	return string(buffer), nil
}
