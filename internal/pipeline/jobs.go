package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/reportsmith/internal/profile"
	"github.com/google/uuid"
)

// JobStatus represents the state of a report generation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one source document on its way to a finished report.
type Job struct {
	mu sync.Mutex

	ID         string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title"`
	ReportType string    `json:"report_type"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	source     string
	profile    profile.Profile
	analysis   string
	reportHTML string
	errors     []string
}

// NewJob creates a queued job for sourceText. The content hash covers the
// text and the report type, so the same document can still be rendered
// as a different report.
func NewJob(filename, title, reportType, sourceText string) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		Title:       title,
		ReportType:  reportType,
		ContentHash: ContentHashHex([]byte(reportType + "\x00" + sourceText)),
		CreatedAt:   now,
		UpdatedAt:   now,
		source:      sourceText,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// FindByHash returns a live (not failed) job with the given content hash.
func (s *JobStore) FindByHash(hash string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ContentHash != hash {
			continue
		}
		if job.Snapshot().Status != StatusFailed {
			return job
		}
	}
	return nil
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetProfile records the detected document profile.
func (j *Job) SetProfile(p profile.Profile) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.profile = p
	j.UpdatedAt = time.Now()
}

// SetAnalysis records the output of the analysis phase.
func (j *Job) SetAnalysis(analysis string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.analysis = analysis
	j.UpdatedAt = time.Now()
}

// Complete stores the finished report and marks the job completed.
func (j *Job) Complete(reportHTML string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reportHTML = reportHTML
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Source returns the extracted source text.
func (j *Job) Source() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.source
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string       `json:"job_id"`
	Status      JobStatus    `json:"status"`
	Phase       string       `json:"phase"`
	Filename    string       `json:"filename"`
	Title       string       `json:"title"`
	ReportType  string       `json:"report_type"`
	Profile     profile.Type `json:"profile,omitempty"`
	Confidence  float64      `json:"profile_confidence,omitempty"`
	Errors      []string     `json:"errors"`
	Analysis    string       `json:"analysis,omitempty"`
	ReportHTML  string       `json:"report_html,omitempty"`
	ReportBytes int          `json:"report_bytes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ReportType:  j.ReportType,
		Profile:     j.profile.Type,
		Confidence:  j.profile.Confidence,
		Errors:      errs,
		Analysis:    j.analysis,
		ReportHTML:  j.reportHTML,
		ReportBytes: len(j.reportHTML),
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
