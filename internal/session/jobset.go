package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

const activeJobsKey = "processingRequests"

// JobSet is the ordered list of job ids that were submitted in a session
// and have not reached a terminal state. The whole list is read and
// rewritten on every change.
type JobSet struct {
	kv     KV
	key    string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewJobSet(kv KV, sessionID string, logger *slog.Logger) *JobSet {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionID == "" {
		sessionID = "default"
	}
	return &JobSet{
		kv:     kv,
		key:    fmt.Sprintf("doc2txt:session:%s:%s", sessionID, activeJobsKey),
		logger: logger,
	}
}

// List returns the ids in insertion order.
func (s *JobSet) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Add appends id unless it is already present.
func (s *JobSet) Add(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.load(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return s.store(ctx, append(ids, id))
}

// Remove drops id. Removing an absent id is a no-op.
func (s *JobSet) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := slices.Index(ids, id)
	if idx < 0 {
		return nil
	}
	return s.store(ctx, slices.Delete(ids, idx, idx+1))
}

// Latest returns the most recently added id, or "" when the set is empty.
func (s *JobSet) Latest(ctx context.Context) (string, error) {
	ids, err := s.List(ctx)
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[len(ids)-1], nil
}

// Clear empties the set.
func (s *JobSet) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(ctx, []string{})
}

func (s *JobSet) load(ctx context.Context) ([]string, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load active jobs: %w", err)
	}
	if len(raw) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		s.logger.Warn("session.jobs.corrupt", "key", s.key, "error", err)
		return []string{}, nil
	}
	return ids, nil
}

func (s *JobSet) store(ctx context.Context, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode active jobs: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save active jobs: %w", err)
	}
	return nil
}
