package service

import (
	"strings"
	"sync"
	"time"

	"github.com/mgulec/taskroom/internal/domain"
	"github.com/mgulec/taskroom/internal/jsonstore"
	"github.com/mgulec/taskroom/pkg/logger"
)

const tasksDoc = "tasks"

// AddOutcome tells the caller what an Add call turned into. Two reserved
// inputs never create a task: the secret code hands control to the chat
// activation sequence, the admin code starts the bulk room wipe.
type AddOutcome int

const (
	OutcomeAdded AddOutcome = iota
	OutcomeEmpty
	OutcomeSecretCode
	OutcomeAdminWipe
)

// TaskService owns the ordered task list. Mutations persist the whole list
// as one JSON document; order is insertion order at the head, newest first.
type TaskService struct {
	mu      sync.Mutex
	docs    *jsonstore.Store
	tasks   []domain.Task
	pending map[int64]*time.Timer

	lastID       int64
	secretCode   string
	adminCode    string
	removalDelay time.Duration

	onChange func([]domain.Task, domain.TaskStats)
	logg     logger.Logger
}

func NewTaskService(docs *jsonstore.Store, secretCode, adminCode string, removalDelay time.Duration, logg logger.Logger) (*TaskService, error) {
	s := &TaskService{
		docs:         docs,
		pending:      make(map[int64]*time.Timer),
		secretCode:   secretCode,
		adminCode:    adminCode,
		removalDelay: removalDelay,
		logg:         logg,
	}
	if err := docs.Load(tasksDoc, &s.tasks); err != nil {
		return nil, err
	}
	for _, t := range s.tasks {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	return s, nil
}

// SetOnChange registers the listener notified after every effective mutation.
// Must be set before the service is shared between goroutines.
func (s *TaskService) SetOnChange(fn func([]domain.Task, domain.TaskStats)) {
	s.onChange = fn
}

// Add classifies text and, for ordinary input, prepends a new task. Reserved
// codes and empty input leave the list untouched.
func (s *TaskService) Add(text string) (AddOutcome, *domain.Task, error) {
	text = strings.TrimSpace(text)

	switch {
	case text == "":
		return OutcomeEmpty, nil, nil
	case text == s.secretCode:
		return OutcomeSecretCode, nil, nil
	case text == s.adminCode:
		return OutcomeAdminWipe, nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	task := domain.Task{
		ID:        id,
		Text:      text,
		Completed: false,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	// Persist before committing to memory, so a write failure leaves the
	// in-memory list matching the disk copy.
	next := append([]domain.Task{task}, s.tasks...)
	if err := s.docs.Save(tasksDoc, next); err != nil {
		return OutcomeAdded, nil, err
	}
	s.tasks = next
	s.notifyLocked()
	return OutcomeAdded, &task, nil
}

// Toggle flips the completion flag of the matching task. Unknown IDs are a
// no-op.
func (s *TaskService) Toggle(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Completed = !s.tasks[i].Completed
			if err := s.persistLocked(); err != nil {
				return err
			}
			s.notifyLocked()
			return nil
		}
	}
	return nil
}

// Delete marks the task for removal and takes it out of the list once the
// removal delay elapses. The delay gates the actual mutation: until the timer
// fires the task stays in the list, flagged as removing.
func (s *TaskService) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, waiting := s.pending[id]; waiting {
		return
	}
	idx := -1
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	s.tasks[idx].Removing = true
	s.pending[id] = time.AfterFunc(s.removalDelay, func() { s.finishDelete(id) })
	s.notifyLocked()
}

func (s *TaskService) finishDelete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept

	if err := s.persistLocked(); err != nil {
		s.logg.Errorf("persist after delete: %v", err)
		return
	}
	s.notifyLocked()
}

// List returns a copy of the current list, newest first.
func (s *TaskService) List() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Task(nil), s.tasks...)
}

// Stats derives the counters from the current list.
func (s *TaskService) Stats() domain.TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *TaskService) statsLocked() domain.TaskStats {
	stats := domain.TaskStats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			stats.Completed++
		}
	}
	return stats
}

// Close stops pending removal timers. Tasks still waiting out their delay
// survive: the pending flag is not persisted.
func (s *TaskService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
}

func (s *TaskService) persistLocked() error {
	return s.docs.Save(tasksDoc, s.tasks)
}

func (s *TaskService) notifyLocked() {
	if s.onChange == nil {
		return
	}
	s.onChange(append([]domain.Task(nil), s.tasks...), s.statsLocked())
}
