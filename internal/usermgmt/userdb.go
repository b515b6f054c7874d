// Package usermgmt stores the operator accounts that gate revtun's admin
// surface: the same account store backs both the admin SSH console's
// password auth and (indirectly, through Manager) the user-mgmt CLI.
package usermgmt

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// accountFileVersion guards the on-disk envelope shape so a future field
// addition doesn't have to guess whether it's reading an older file.
const accountFileVersion = 1

// bcryptCost is fixed rather than cost-tunable: these are long-lived
// operator credentials guarding a live tunnel server, not the throwaway
// accounts a password-hashing benchmark would use, so there's no case for
// trading cost down.
const bcryptCost = bcrypt.DefaultCost

const minPasswordLength = 8

// AdminAccount is one operator credential for the admin surface.
type AdminAccount struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	Enabled      bool       `json:"enabled"`
}

// accountFile is the on-disk envelope written by UserDB.
type accountFile struct {
	Version  int                      `json:"version"`
	Accounts map[string]*AdminAccount `json:"accounts"`
}

// UserDB manages admin accounts with thread-safe operations, persisted as a
// single versioned JSON file.
type UserDB struct {
	accounts map[string]*AdminAccount
	filePath string
	mu       sync.RWMutex
}

// NewUserDB opens (or lazily creates) the admin account store at dbPath.
// If dbPath is empty, it uses "admin-users.json" in the current directory.
func NewUserDB(dbPath string) *UserDB {
	if dbPath == "" {
		dbPath = "admin-users.json"
	}

	db := &UserDB{
		accounts: make(map[string]*AdminAccount),
		filePath: dbPath,
	}
	db.load()
	return db
}

// AddUser creates a new admin account.
func (db *UserDB) AddUser(username, password string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := validateCredentials(username, password); err != nil {
		return err
	}
	if _, exists := db.accounts[username]; exists {
		return fmt.Errorf("admin account %q already exists", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	db.accounts[username] = &AdminAccount{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		Enabled:      true,
	}

	if err := db.persist(); err != nil {
		delete(db.accounts, username)
		return fmt.Errorf("persisting admin account store: %w", err)
	}
	return nil
}

// RemoveUser deletes an admin account.
func (db *UserDB) RemoveUser(username string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.accounts[username]; !exists {
		return fmt.Errorf("admin account %q does not exist", username)
	}
	delete(db.accounts, username)
	return db.persist()
}

// UpdatePassword sets a new password for an existing account.
func (db *UserDB) UpdatePassword(username, newPassword string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	account, exists := db.accounts[username]
	if !exists {
		return fmt.Errorf("admin account %q does not exist", username)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	account.PasswordHash = string(hash)
	return db.persist()
}

// EnableUser re-enables a disabled admin account.
func (db *UserDB) EnableUser(username string) error {
	return db.setEnabled(username, true)
}

// DisableUser disables an admin account without deleting its record, so its
// creation/login history survives a later re-enable.
func (db *UserDB) DisableUser(username string) error {
	return db.setEnabled(username, false)
}

func (db *UserDB) setEnabled(username string, enabled bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	account, exists := db.accounts[username]
	if !exists {
		return fmt.Errorf("admin account %q does not exist", username)
	}
	account.Enabled = enabled
	return db.persist()
}

// Authenticate checks credentials for an enabled account and, on success,
// stamps and persists LastLogin. Persistence failure after a successful
// check does not fail the login - the SSH console shouldn't reject a
// correct password because the disk is momentarily unwritable.
func (db *UserDB) Authenticate(username, password string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	account, exists := db.accounts[username]
	if !exists || !account.Enabled {
		return false
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return false
	}

	now := time.Now()
	account.LastLogin = &now
	if err := db.persist(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording login for %q: %v\n", username, err)
	}
	return true
}

// ListUsers returns all account usernames.
func (db *UserDB) ListUsers() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.accounts))
	for username := range db.accounts {
		names = append(names, username)
	}
	return names
}

// GetUserInfo returns account metadata without the password hash.
func (db *UserDB) GetUserInfo(username string) (*AdminAccount, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	account, exists := db.accounts[username]
	if !exists {
		return nil, fmt.Errorf("admin account %q does not exist", username)
	}
	return &AdminAccount{
		Username:  account.Username,
		CreatedAt: account.CreatedAt,
		LastLogin: account.LastLogin,
		Enabled:   account.Enabled,
	}, nil
}

// BackupDB writes a copy of the current in-memory account set to
// backupPath, independent of whatever happens to be on disk at filePath.
func (db *UserDB) BackupDB(backupPath string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	data, err := json.MarshalIndent(accountFile{Version: accountFileVersion, Accounts: db.accounts}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(backupPath, data, 0600)
}

// persist writes the account store to filePath via a temp-file-then-rename
// so a crash mid-write can never leave a truncated store behind.
func (db *UserDB) persist() error {
	data, err := json.MarshalIndent(accountFile{Version: accountFileVersion, Accounts: db.accounts}, "", "  ")
	if err != nil {
		return err
	}

	tmp := db.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, db.filePath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// load reads the account store from filePath. A missing or empty file is
// not an error - it means no accounts have been created yet. An older,
// version-0 file (a bare username->account map, no envelope) is accepted
// as a migration path.
func (db *UserDB) load() error {
	data, err := os.ReadFile(db.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file accountFile
	if err := json.Unmarshal(data, &file); err == nil && file.Accounts != nil {
		db.accounts = file.Accounts
		return nil
	}

	var legacy map[string]*AdminAccount
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("parsing admin account store: %w", err)
	}
	db.accounts = legacy
	return nil
}

func validateCredentials(username, password string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
