package tracker

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

type ExcludedThreads struct {
	Items []*ExcludedThread
}

type ExcludedThread struct {
	ThreadID   string
	Subject    string
	Company    string
	ExcludedAt time.Time
}

// GetExcludedThreadsFromFile reads the exclude file. A missing or empty file yields an empty list.
func GetExcludedThreadsFromFile(path string) (*ExcludedThreads, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedThreads{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedThreads{}, nil
	}

	var excluded ExcludedThreads
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds threads not already present.
func (x *ExcludedThreads) Append(s *ExcludedThreads) {
	seen := make(map[string]struct{}, len(x.Items))
	for _, item := range x.Items {
		seen[item.ThreadID] = struct{}{}
	}
	for _, item := range s.Items {
		if _, ok := seen[item.ThreadID]; ok {
			continue
		}
		seen[item.ThreadID] = struct{}{}
		x.Items = append(x.Items, item)
	}
}

func (x *ExcludedThreads) ThreadIDs() []string {
	ids := make([]string, 0, len(x.Items))
	for _, item := range x.Items {
		ids = append(ids, item.ThreadID)
	}
	return ids
}

func (x *ExcludedThreads) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(x)
}

// ToExcluded converts applications into exclude file entries keyed by thread.
func (a *Applications) ToExcluded() *ExcludedThreads {
	excluded := &ExcludedThreads{}
	now := time.Now().UTC()
	for _, app := range a.Items {
		id := app.ThreadID
		if id == "" {
			id = app.EmailID
		}
		excluded.Items = append(excluded.Items, &ExcludedThread{
			ThreadID:   id,
			Subject:    app.Subject,
			Company:    app.Company,
			ExcludedAt: now,
		})
	}
	return excluded
}
