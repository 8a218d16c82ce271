package content

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// History хранит сгенерированный контент только в памяти, новые записи первыми.
type History struct {
	mu    sync.RWMutex
	items []*Job
	limit int
}

func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Add присваивает ID (если его нет) и кладет задание в начало списка.
func (h *History) Add(job *Job) string {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for i, it := range h.items {
		if it.ID == job.ID {
			h.items = append(h.items[:i], h.items[i+1:]...)
			break
		}
	}
	h.items = append([]*Job{job}, h.items...)
	if h.limit > 0 && len(h.items) > h.limit {
		h.items = h.items[:h.limit]
	}
	return job.ID
}

func (h *History) Get(id string) (*Job, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, it := range h.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, fmt.Errorf("history: job %s not found", id)
}

func (h *History) List() []*Job {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Job, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, it := range h.items {
		if it.ID == id {
			h.items = append(h.items[:i], h.items[i+1:]...)
			return true
		}
	}
	return false
}
