package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Cursor persists, per chain and account, the first block the activity scan
// has not yet covered.
type Cursor struct {
	path string
}

type cursorFile struct {
	Accounts map[string]cursorEntry `json:"accounts"`
}

type cursorEntry struct {
	NextBlock uint64 `json:"next_block"`
	UpdatedAt string `json:"updated_at"`
}

func NewCursor(path string) *Cursor {
	return &Cursor{path: path}
}

// Next returns the block to resume from. ok is false when nothing was saved.
func (c *Cursor) Next(chainID uint64, account common.Address) (uint64, bool, error) {
	file, err := c.load()
	if err != nil {
		return 0, false, err
	}
	entry, ok := file.Accounts[cursorKey(chainID, account)]
	if !ok {
		return 0, false, nil
	}
	return entry.NextBlock, true, nil
}

// Advance records that every block up to and including scannedTo was covered.
func (c *Cursor) Advance(chainID uint64, account common.Address, scannedTo uint64) error {
	file, err := c.load()
	if err != nil {
		return err
	}
	key := cursorKey(chainID, account)
	if prev, ok := file.Accounts[key]; ok && prev.NextBlock > scannedTo+1 {
		return nil
	}
	file.Accounts[key] = cursorEntry{
		NextBlock: scannedTo + 1,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	return c.save(file)
}

func (c *Cursor) load() (cursorFile, error) {
	file := cursorFile{Accounts: map[string]cursorEntry{}}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return file, fmt.Errorf("stat cursor: %w", err)
	}
	if stat.IsDir() {
		return file, fmt.Errorf("cursor path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return file, fmt.Errorf("read cursor: %w", err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse cursor: %w", err)
	}
	if file.Accounts == nil {
		file.Accounts = map[string]cursorEntry{}
	}
	return file, nil
}

func (c *Cursor) save(file cursorFile) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write cursor tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename cursor: %w", err)
	}
	return nil
}

func cursorKey(chainID uint64, account common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(account.Hex()))
}
