// Package vault stores record payloads off-chain. The ledger holds only
// the SHA-256 reference; the payload bytes live here, encrypted at rest.
package vault

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/afyachain/medledger/utils"
)

const payloadPrefix = "payload_"

var saltKey = []byte("meta_salt")

// ErrNotFound is returned when no payload is stored under a hash.
var ErrNotFound = fmt.Errorf("payload not found")

// Vault is a LevelDB store of AES-GCM encrypted payloads keyed by their
// content hash.
type Vault struct {
	db  *leveldb.DB
	key []byte
}

// Open opens (or creates) the vault at path. The encryption key is
// derived from the passphrase and a salt persisted inside the store, so
// the same passphrase unlocks the vault across restarts.
func Open(path, passphrase string) (*Vault, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault at %s: %v", path, err)
	}

	salt, err := db.Get(saltKey, nil)
	if err == leveldb.ErrNotFound {
		salt, err = utils.GenerateSalt()
		if err == nil {
			err = db.Put(saltKey, salt, nil)
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vault salt: %v", err)
	}

	return &Vault{db: db, key: utils.DeriveKey(passphrase, salt)}, nil
}

// Put encrypts and stores a payload and returns its content hash, which
// is the key for retrieval and the reference stored on the ledger.
func (v *Vault) Put(payload []byte) (string, error) {
	hash := utils.GenerateDataHash(payload)
	encrypted, err := utils.EncryptData(payload, v.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt payload: %v", err)
	}
	if err := v.db.Put([]byte(payloadPrefix+hash), []byte(encrypted), nil); err != nil {
		return "", fmt.Errorf("failed to store payload: %v", err)
	}
	return hash, nil
}

// Get decrypts the payload stored under recordHash. The decrypted bytes
// are re-hashed against the requested key, so a payload that was
// swapped or corrupted underneath the store is rejected rather than
// served.
func (v *Vault) Get(recordHash string) ([]byte, error) {
	stored, err := v.db.Get([]byte(payloadPrefix+recordHash), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %v", err)
	}

	payload, err := utils.DecryptData(string(stored), v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %v", err)
	}
	if !utils.VerifyDataHash(payload, recordHash) {
		return nil, fmt.Errorf("stored payload does not match hash %s", recordHash)
	}
	return payload, nil
}

// Has reports whether a payload is stored under recordHash.
func (v *Vault) Has(recordHash string) (bool, error) {
	return v.db.Has([]byte(payloadPrefix+recordHash), nil)
}

func (v *Vault) Close() error {
	return v.db.Close()
}
