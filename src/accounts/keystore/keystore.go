// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/accounts/keystore/keystore.go
package keystore

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sphinx-core/stark-pqc/src/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Kind names the key algorithm held by a key file.
type Kind string

const (
	KindSLHDSA   Kind = "slh-dsa-sha2-128s"
	KindKyber768 Kind = "kyber768"
)

const (
	Version = 1
	kdfName = "argon2id"
	saltLen = 16
	keyLen  = chacha20poly1305.KeySize
)

var (
	ErrWrongPassphrase = errors.New("keystore: wrong passphrase or corrupted key file")
	ErrNotFound        = errors.New("keystore: key not found")
	ErrEmptyPassphrase = errors.New("keystore: empty passphrase")
)

// KDFParams are the argon2id cost parameters recorded with each key.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// DefaultKDF is used for new key files.
var DefaultKDF = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}

// Crypto holds the sealed secret key.
type Crypto struct {
	KDF        string    `json:"kdf"`
	Params     KDFParams `json:"params"`
	Salt       string    `json:"salt"`
	Nonce      string    `json:"nonce"`
	Ciphertext string    `json:"ciphertext"`
}

// KeyFile is the on-disk JSON form of one encrypted key.
type KeyFile struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	PublicKey string    `json:"public_key"`
	Created   time.Time `json:"created"`
	Crypto    Crypto    `json:"crypto"`
}

func deriveKey(passphrase, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, keyLen)
}

// aad binds the header fields to the ciphertext.
func (k *KeyFile) aad() []byte {
	return []byte(fmt.Sprintf("%d|%s|%s|%s", k.Version, k.ID, k.Kind, k.PublicKey))
}

// Encrypt seals secret under passphrase. rnd defaults to crypto/rand.
func Encrypt(id string, kind Kind, secret, public, passphrase []byte, params KDFParams, rnd io.Reader) (*KeyFile, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if rnd == nil {
		rnd = rand.Reader
	}
	salt := make([]byte, saltLen)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return nil, fmt.Errorf("keystore: read salt: %w", err)
	}
	if _, err := io.ReadFull(rnd, nonce); err != nil {
		return nil, fmt.Errorf("keystore: read nonce: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt, params))
	if err != nil {
		return nil, err
	}
	kf := &KeyFile{
		Version:   Version,
		ID:        id,
		Kind:      kind,
		PublicKey: common.Bytes2Hex(public),
		Created:   time.Now().UTC().Truncate(time.Second),
	}
	kf.Crypto = Crypto{
		KDF:        kdfName,
		Params:     params,
		Salt:       common.Bytes2Hex(salt),
		Nonce:      common.Bytes2Hex(nonce),
		Ciphertext: common.Bytes2Hex(aead.Seal(nil, nonce, secret, kf.aad())),
	}
	return kf, nil
}

// Decrypt opens the secret key.
func (k *KeyFile) Decrypt(passphrase []byte) ([]byte, error) {
	if k.Version != Version || k.Crypto.KDF != kdfName {
		return nil, fmt.Errorf("keystore: unsupported key file version %d kdf %q", k.Version, k.Crypto.KDF)
	}
	salt, err := common.Hex2Bytes(k.Crypto.Salt)
	if err != nil {
		return nil, fmt.Errorf("keystore: salt: %w", err)
	}
	nonce, err := common.Hex2Bytes(k.Crypto.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}
	ct, err := common.Hex2Bytes(k.Crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("keystore: ciphertext: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt, k.Crypto.Params))
	if err != nil {
		return nil, err
	}
	secret, err := aead.Open(nil, nonce, ct, k.aad())
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return secret, nil
}

// Public returns the decoded public key.
func (k *KeyFile) Public() ([]byte, error) {
	return common.Hex2Bytes(k.PublicKey)
}

// IsKeyFile reports whether data looks like a JSON key file rather than a
// bare hex key.
func IsKeyFile(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("{"))
}

// Parse decodes a key file.
func Parse(data []byte) (*KeyFile, error) {
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("keystore: parse key file: %w", err)
	}
	return &kf, nil
}

// WriteFile writes kf to path with owner-only permissions.
func WriteFile(path string, kf *KeyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadFile loads a key file from path.
func ReadFile(path string) (*KeyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Store is a directory of key files named <id>.json.
type Store struct {
	mu  sync.RWMutex
	dir string
	kdf KDFParams
}

// NewStore opens or creates the key directory.
func NewStore(dir string, kdf KDFParams) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create directory: %w", err)
	}
	return &Store{dir: dir, kdf: kdf}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("keystore: invalid key id %q", id)
	}
	return nil
}

// Put encrypts secret and stores it under id, replacing any previous key.
func (s *Store) Put(id string, kind Kind, secret, public, passphrase []byte) (*KeyFile, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	kf, err := Encrypt(id, kind, secret, public, passphrase, s.kdf, nil)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WriteFile(s.path(id), kf); err != nil {
		return nil, err
	}
	return kf, nil
}

// Get loads the key file stored under id.
func (s *Store) Get(id string) (*KeyFile, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	kf, err := ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return kf, err
}

// Open loads and decrypts the key stored under id.
func (s *Store) Open(id string, passphrase []byte) (*KeyFile, []byte, error) {
	kf, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	secret, err := kf.Decrypt(passphrase)
	if err != nil {
		return nil, nil, err
	}
	return kf, secret, nil
}

// List returns the stored key ids in order.
func (s *Store) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Remove deletes the key stored under id.
func (s *Store) Remove(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// ChangePassphrase re-encrypts the key under a new passphrase.
func (s *Store) ChangePassphrase(id string, oldPass, newPass []byte) error {
	kf, secret, err := s.Open(id, oldPass)
	if err != nil {
		return err
	}
	public, err := kf.Public()
	if err != nil {
		return err
	}
	_, err = s.Put(id, kf.Kind, secret, public, newPass)
	return err
}
