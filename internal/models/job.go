package models

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job is one background inventory refresh. ID and StartedAt are fixed at
// creation; everything else mutates under the lock, so readers go through
// the accessors (or View for serialization).
type Job struct {
	ID        string
	StartedAt time.Time

	mu         sync.Mutex
	status     string
	finishedAt *time.Time
	err        string
	output     []string
}

// JobView is a point-in-time copy of a Job, safe to serialize while the
// refresh is still running.
type JobView struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Output     []string   `json:"output"`
}

// AppendLog adds a log line to the job output.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = append(j.output, line)
}

// LogsSince returns log lines starting from the given index.
func (j *Job) LogsSince(offset int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.output) {
		return nil
	}
	lines := make([]string, len(j.output)-offset)
	copy(lines, j.output[offset:])
	return lines
}

// Complete marks the job as completed.
func (j *Job) Complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobCompleted
	now := time.Now()
	j.finishedAt = &now
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobFailed
	j.err = msg
	now := time.Now()
	j.finishedAt = &now
}

// Status returns the current job status.
func (j *Job) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Terminal reports whether the job has finished, successfully or not.
func (j *Job) Terminal() bool {
	s := j.Status()
	return s == JobCompleted || s == JobFailed
}

// View returns a consistent copy for serialization.
func (j *Job) View() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	output := make([]string, len(j.output))
	copy(output, j.output)
	return JobView{
		ID:         j.ID,
		Status:     j.status,
		StartedAt:  j.StartedAt,
		FinishedAt: j.finishedAt,
		Error:      j.err,
		Output:     output,
	}
}

// JobStore is an in-memory thread-safe store for refresh jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new running job, assigning it a UUID.
func (s *JobStore) Create() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &Job{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		status:    JobRunning,
		output:    []string{},
	}
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].StartedAt.After(result[k].StartedAt)
	})
	return result
}
