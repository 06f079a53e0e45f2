// Package filekeeper persists the household state as a single human-readable
// JSON document, the server-side equivalent of the browser's local storage.
package filekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/models"
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// FileKeeper stores a models.Snapshot in one file. Writes replace the file
// atomically so a crash never leaves a half written document behind.
type FileKeeper struct {
	mu   sync.Mutex
	path string
	log  Log
}

func NewFileKeeper(path string, log Log) (*FileKeeper, error) {
	if path == "" {
		return nil, errors.New("data file path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	log.Info("using JSON data file", zap.String("path", path))
	return &FileKeeper{path: path, log: log}, nil
}

// Load reads the document. A missing file is an empty household.
func (k *FileKeeper) Load(_ context.Context) (*models.Snapshot, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.read()
}

func (k *FileKeeper) AddItems(_ context.Context, items []models.FoodItem, purchases []models.Purchase) error {
	return k.update(func(s *models.Snapshot) {
		s.Items = append(s.Items, items...)
		s.Purchases = append(s.Purchases, purchases...)
	})
}

func (k *FileKeeper) UpsertItems(_ context.Context, items []models.FoodItem) error {
	return k.update(func(s *models.Snapshot) {
		index := make(map[string]int, len(s.Items))
		for i, it := range s.Items {
			index[it.ID] = i
		}
		for _, it := range items {
			if i, ok := index[it.ID]; ok {
				s.Items[i] = it
				continue
			}
			index[it.ID] = len(s.Items)
			s.Items = append(s.Items, it)
		}
	})
}

func (k *FileKeeper) DeleteItems(_ context.Context, ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return k.update(func(s *models.Snapshot) {
		kept := s.Items[:0]
		for _, it := range s.Items {
			if _, ok := drop[it.ID]; !ok {
				kept = append(kept, it)
			}
		}
		s.Items = kept
	})
}

func (k *FileKeeper) SaveExpense(_ context.Context, e models.MonthlyExpense) error {
	return k.update(func(s *models.Snapshot) {
		for i := range s.Expenses {
			if s.Expenses[i].Month == e.Month {
				s.Expenses[i].Amount = e.Amount
				return
			}
		}
		s.Expenses = append(s.Expenses, e)
	})
}

// Ping checks that the data directory is still writable.
func (k *FileKeeper) Ping(_ context.Context) bool {
	f, err := os.CreateTemp(filepath.Dir(k.path), ".ping-*")
	if err != nil {
		k.log.Error("data file directory is not writable", zap.Error(err))
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

func (k *FileKeeper) Close() bool {
	k.log.Info("JSON data file closed", zap.String("path", k.path))
	return true
}

func (k *FileKeeper) update(fn func(*models.Snapshot)) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	snap, err := k.read()
	if err != nil {
		return err
	}
	fn(snap)
	return k.write(snap)
}

func (k *FileKeeper) read() (*models.Snapshot, error) {
	b, err := os.ReadFile(k.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &models.Snapshot{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &snap, nil
}

func (k *FileKeeper) write(snap *models.Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(k.path), filepath.Base(k.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), k.path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
