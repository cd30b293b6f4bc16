package storage

import gonanoid "github.com/matoous/go-nanoid/v2"

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewGuestID returns a fresh guest id such as "g_k3v9x0qa".
func NewGuestID() (string, error) {
	id, err := gonanoid.Generate(idAlphabet, 8)
	if err != nil {
		return "", err
	}
	return "g_" + id, nil
}
