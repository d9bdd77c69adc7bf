package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/keshon/piecebot/internal/core"
)

// JSON stores every record as <dir>/<table>/<id>.json. Writes go through a
// temp file and a rename, and are verified by checksum.
type JSON struct {
	core.NoAliases

	dir         string
	backupCount int

	mu        sync.Mutex
	checksums map[string]string // path -> checksum of the last write
}

var _ core.Provider = (*JSON)(nil)

// NewJSON returns a provider rooted at dir keeping backupCount backups of
// every record it overwrites.
func NewJSON(dir string, backupCount int) *JSON {
	return &JSON{dir: dir, backupCount: backupCount, checksums: map[string]string{}}
}

func (p *JSON) Name() string { return "json" }

func (p *JSON) Init(context.Context, *core.Client) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (p *JSON) tablePath(table string) (string, error) {
	if table == "" || filepath.Base(table) != table || strings.HasPrefix(table, ".") {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return filepath.Join(p.dir, table), nil
}

func (p *JSON) recordPath(table, id string) (string, error) {
	dir, err := p.tablePath(table)
	if err != nil {
		return "", err
	}
	if id == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid record id %q", id)
	}
	return filepath.Join(dir, id+".json"), nil
}

// =============================================================================
// Tables
// =============================================================================

func (p *JSON) HasTable(_ context.Context, table string) (bool, error) {
	dir, err := p.tablePath(table)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (p *JSON) CreateTable(_ context.Context, table string) error {
	dir, err := p.tablePath(table)
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func (p *JSON) DeleteTable(_ context.Context, table string) error {
	dir, err := p.tablePath(table)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for path := range p.checksums {
		if filepath.Dir(path) == dir {
			delete(p.checksums, path)
		}
	}
	return os.RemoveAll(dir)
}

// =============================================================================
// Reads
// =============================================================================

func (p *JSON) GetKeys(_ context.Context, table string) ([]string, error) {
	dir, err := p.tablePath(table)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (p *JSON) GetAll(ctx context.Context, table string) (map[string]core.Record, error) {
	keys, err := p.GetKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Record, len(keys))
	for _, id := range keys {
		rec, ok, err := p.Get(ctx, table, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (p *JSON) Get(_ context.Context, table, id string) (core.Record, bool, error) {
	path, err := p.recordPath(table, id)
	if err != nil {
		return nil, false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return readRecord(path)
}

func readRecord(path string) (core.Record, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	if rec == nil {
		rec = core.Record{}
	}
	return rec, true, nil
}

func (p *JSON) Has(_ context.Context, table, id string) (bool, error) {
	path, err := p.recordPath(table, id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// =============================================================================
// Writes
// =============================================================================

func (p *JSON) Create(_ context.Context, table, id string, data core.Record) error {
	path, err := p.recordPath(table, id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s/%s: %w", table, id, ErrExists)
	}
	return p.write(path, withoutNil(data))
}

// Update merges data into the stored record, creating it when missing. Nil
// values delete their key.
func (p *JSON) Update(_ context.Context, table, id string, data core.Record) error {
	path, err := p.recordPath(table, id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, _, err := readRecord(path)
	if err != nil {
		return err
	}
	return p.write(path, merge(rec, data))
}

func (p *JSON) Replace(_ context.Context, table, id string, data core.Record) error {
	path, err := p.recordPath(table, id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(path, withoutNil(data))
}

func (p *JSON) Delete(_ context.Context, table, id string) error {
	path, err := p.recordPath(table, id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.checksums, path)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	return nil
}

// write saves rec at path unless it is unchanged since the last write.
func (p *JSON) write(path string, rec core.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	sum := checksum(data)
	if p.checksums[path] == sum {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create table dir: %w", err)
	}
	if p.backupCount > 0 {
		if err := createBackup(path, p.backupCount); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	if err := verifyFile(path, sum); err != nil {
		return fmt.Errorf("file verification failed: %w", err)
	}
	p.checksums[path] = sum
	return nil
}

func merge(rec, patch core.Record) core.Record {
	if rec == nil {
		rec = core.Record{}
	}
	for k, v := range patch {
		if v == nil {
			delete(rec, k)
			continue
		}
		rec[k] = v
	}
	return rec
}

func withoutNil(data core.Record) core.Record {
	return merge(core.Record{}, data)
}

// writeFileAtomic performs atomic file write using temporary file and rename
func writeFileAtomic(path string, data []byte) error {
	tmpFile := path + ".tmp"

	file, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func verifyFile(path, sum string) error {
	actual, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file for verification: %w", err)
	}
	if checksum(actual) != sum {
		return errors.New("file checksum mismatch")
	}
	return nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// createBackup copies the current file to a timestamped backup and keeps the
// newest keep backups.
func createBackup(path string, keep int) error {
	src, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	backup := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102_150405.000000000"))
	dst, err := os.Create(backup)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	matches, err := filepath.Glob(path + ".backup.*")
	if err != nil || len(matches) <= keep {
		return nil
	}
	// Timestamps sort lexically.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-keep] {
		os.Remove(old)
	}
	return nil
}
