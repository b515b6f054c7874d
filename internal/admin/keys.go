package admin

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// loadOrGenerateHostKey reads the admin SSH console's host key from path, or
// generates and persists a new RSA key if none exists yet.
func loadOrGenerateHostKey(path string) (ssh.Signer, error) {
	privateBytes, err := os.ReadFile(path)
	if err != nil {
		privateKey, genErr := newRSAPrivateKey(4096)
		if genErr != nil {
			return nil, fmt.Errorf("failed to generate admin host key: %v", genErr)
		}
		privateBytes = rsaPrivateKeyPEM(privateKey)
		if writeErr := os.WriteFile(path, privateBytes, 0600); writeErr != nil {
			return nil, fmt.Errorf("failed to save admin host key: %v", writeErr)
		}
	}
	return ssh.ParsePrivateKey(privateBytes)
}

func newRSAPrivateKey(bitSize int) (*rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bitSize)
	if err != nil {
		return nil, err
	}
	if err := privateKey.Validate(); err != nil {
		return nil, err
	}
	return privateKey, nil
}

func rsaPrivateKeyPEM(privateKey *rsa.PrivateKey) []byte {
	privDER := x509.MarshalPKCS1PrivateKey(privateKey)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER})
}
