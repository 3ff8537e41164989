// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

const (
	pbkdf2SaltLength = 8
	pbkdf2Iterations = 10000
	aesKeyLength     = 32
	aesGCMNonce      = 12
)

// loadCACertPool adds the PEM certificates of caFile and of every file in
// caPath to a new pool.
func loadCACertPool(caFile, caPath string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("no certificates found in CA file")
		}
	}

	if caPath != "" {
		entries, err := os.ReadDir(caPath)
		if err != nil {
			return nil, err
		}
		var found bool
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			pem, err := os.ReadFile(filepath.Join(caPath, e.Name()))
			if err != nil {
				return nil, err
			}
			found = pool.AppendCertsFromPEM(pem) || found
		}
		if !found {
			return nil, errors.New("no certificates found in CA path")
		}
	}

	return pool, nil
}

// decryptPEMBlock decrypts a private key protected with a password. Legacy
// RFC 1423 encrypted blocks are handled by package x509; anything else is
// expected to be an 8-byte salt followed by an AES-GCM sealed key derived
// with PBKDF2 over SHA3-256.
func decryptPEMBlock(block *pem.Block, password []byte) ([]byte, error) {
	//nolint:staticcheck // Legacy encrypted keys are still in circulation.
	if x509.IsEncryptedPEMBlock(block) {
		//nolint:staticcheck // See above.
		return x509.DecryptPEMBlock(block, password)
	}

	if len(block.Bytes) < pbkdf2SaltLength {
		return nil, errors.New("encrypted private key is too short")
	}
	salt := block.Bytes[:pbkdf2SaltLength]
	key := pbkdf2.Key(password, salt, pbkdf2Iterations, aesKeyLength, sha3.New256)
	return aesGCMDecrypt(block.Bytes[pbkdf2SaltLength:], key)
}

func aesGCMDecrypt(encrypted, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(encrypted) < aesGCMNonce {
		return nil, errors.New("ciphertext in PEM block is too short")
	}
	nonce, ciphertext := encrypted[:aesGCMNonce], encrypted[aesGCMNonce:]

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// loadX509KeyPairWithPassword loads a certificate and its password-protected
// private key.
func loadX509KeyPairWithPassword(
	certFile string,
	keyFile string,
	password []byte,
) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, err
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, err
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return tls.Certificate{}, errors.New(
			"failed to decode PEM block containing private key",
		)
	}

	der, err := decryptPEMBlock(block, password)
	if err != nil {
		return tls.Certificate{}, err
	}

	// The decrypted key is re-encoded without the encryption headers.
	typ := block.Type
	if typ == "ENCRYPTED PRIVATE KEY" {
		typ = "PRIVATE KEY"
	}
	return tls.X509KeyPair(certPEM, pem.EncodeToMemory(&pem.Block{
		Type:  typ,
		Bytes: der,
	}))
}
