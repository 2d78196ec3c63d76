package engine

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Scripted is a deterministic Engine for tests. It replays canned responses
// in order, sticking on the last one once the script runs out, and records
// every prompt it was handed.
type Scripted struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	next      int
	Calls     [][]*schema.Message
}

func NewScripted(responses ...string) *Scripted {
	return &Scripted{Responses: responses}
}

func (s *Scripted) Complete(ctx context.Context, msgs []*schema.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, msgs)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", nil
	}
	i := s.next
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	} else {
		s.next++
	}
	return s.Responses[i], nil
}

// CallCount returns how many completions were requested.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
