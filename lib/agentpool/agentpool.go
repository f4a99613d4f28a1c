package agentpool

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

var ErrEmptyPool = fmt.Errorf("user agent pool is empty")

// CursorStore persists the rotation position between runs so the
// pool doesn't restart from the first agent on every process start.
type CursorStore interface {
	Load() (int, error)
	Save(position int) error
}

// Rotator hands out user agent strings round-robin from a fixed pool.
// Safe for concurrent use; the cursor store only ever sees writes from
// one caller at a time.
type Rotator struct {
	mu     sync.Mutex
	agents []string
	cursor CursorStore
	// -1 until the first Next() loads the persisted position
	position int
}

func NewRotator(agents []string, cursor CursorStore) (*Rotator, error) {
	if len(agents) == 0 {
		return nil, ErrEmptyPool
	}
	return &Rotator{
		agents:   agents,
		cursor:   cursor,
		position: -1,
	}, nil
}

// NewRotatorFromFile loads a newline-delimited user agent list.
// Blank lines are skipped.
func NewRotatorFromFile(path string, cursor CursorStore) (*Rotator, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var agents []string
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		agents = append(agents, line)
	}
	return NewRotator(agents, cursor)
}

func (r *Rotator) Size() int {
	return len(r.agents)
}

// Next returns the current agent and advances the persisted cursor.
func (r *Rotator) Next() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.position < 0 {
		pos, err := r.cursor.Load()
		if err != nil {
			return "", fmt.Errorf("load agent cursor: %w", err)
		}
		if pos < 0 || pos >= len(r.agents) {
			pos = 0
		}
		r.position = pos
	}

	agent := r.agents[r.position]
	next := (r.position + 1) % len(r.agents)
	err := r.cursor.Save(next)
	if err != nil {
		return "", fmt.Errorf("save agent cursor: %w", err)
	}
	r.position = next

	return agent, nil
}

// FileCursorStore keeps the cursor in a small text file holding a
// single integer, created on first save.
type FileCursorStore struct {
	Path string
}

func (s FileCursorStore) Load() (int, error) {
	contents, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	pos, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		// a mangled cursor file shouldn't wedge the rotator
		return 0, nil
	}
	return pos, nil
}

func (s FileCursorStore) Save(position int) error {
	return os.WriteFile(s.Path, []byte(strconv.Itoa(position)), 0o644)
}

// MemoryCursorStore is a CursorStore for tests.
type MemoryCursorStore struct {
	Position int
}

func (s *MemoryCursorStore) Load() (int, error) {
	return s.Position, nil
}

func (s *MemoryCursorStore) Save(position int) error {
	s.Position = position
	return nil
}
