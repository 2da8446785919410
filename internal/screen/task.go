package screen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/laithharzallah/Laithstool-sub001/internal/report"
)

// TaskStatus is the lifecycle state of a task or step.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Screening step names, in execution order.
const (
	StepWebSearch        = "web_search"
	StepRegistryLookup   = "registry_lookup"
	StepAIAnalysis       = "ai_analysis"
	StepReportGeneration = "report_generation"
)

var stepNames = []string{StepWebSearch, StepRegistryLookup, StepAIAnalysis, StepReportGeneration}

// Step tracks one stage of a screening task.
type Step struct {
	Name        string     `json:"name"`
	Status      TaskStatus `json:"status"`
	Message     string     `json:"message,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  *int64     `json:"duration_ms,omitempty"`
}

// Task is a snapshot of an asynchronous screening.
type Task struct {
	ID          string         `json:"task_id"`
	Company     string         `json:"company"`
	Country     string         `json:"country,omitempty"`
	Status      TaskStatus     `json:"status"`
	Progress    int            `json:"progress_percentage"`
	CurrentStep string         `json:"current_step,omitempty"`
	Steps       []Step         `json:"steps"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error_message,omitempty"`
	Result      *report.Report `json:"-"`
}

// TaskStore keeps screening tasks in memory. All methods are safe for
// concurrent use; reads return copies.
type TaskStore struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	logger *slog.Logger
}

func NewTaskStore(logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		tasks:  make(map[string]*Task),
		logger: logger.With("component", "tasks"),
	}
}

// Create registers a pending task with all steps pending.
func (ts *TaskStore) Create(company, country string) Task {
	steps := make([]Step, len(stepNames))
	for i, name := range stepNames {
		steps[i] = Step{Name: name, Status: TaskPending}
	}
	t := &Task{
		ID:        uuid.NewString(),
		Company:   company,
		Country:   country,
		Status:    TaskPending,
		Steps:     steps,
		CreatedAt: time.Now().UTC(),
	}
	ts.mu.Lock()
	ts.tasks[t.ID] = t
	ts.mu.Unlock()
	ts.logger.Info("task created", "task_id", t.ID, "company", company)
	return snapshot(t)
}

// Get returns a copy of the task, false when unknown.
func (ts *TaskStore) Get(id string) (Task, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.tasks[id]
	if !ok {
		return Task{}, false
	}
	return snapshot(t), true
}

// Run marks the task as started.
func (ts *TaskStore) Run(id string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.tasks[id]; ok {
		now := time.Now().UTC()
		t.Status = TaskRunning
		t.StartedAt = &now
	}
}

// StartStep marks a step in progress and makes it the current step.
func (ts *TaskStore) StartStep(id, step, message string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.tasks[id]
	if !ok {
		return
	}
	if s := findStep(t, step); s != nil && s.Status == TaskPending {
		now := time.Now().UTC()
		s.Status = TaskRunning
		s.Message = message
		s.StartedAt = &now
		t.CurrentStep = step
	}
}

// CompleteStep finishes a step and advances the task progress.
func (ts *TaskStore) CompleteStep(id, step, message string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.tasks[id]
	if !ok {
		return
	}
	if s := findStep(t, step); s != nil && s.Status != TaskCompleted {
		finishStep(s, TaskCompleted, message)
		refreshProgress(t)
	}
}

// Complete stores the result and finishes the task. Steps the run
// never touched, as happens when the report comes straight from
// cache, complete alongside.
func (ts *TaskStore) Complete(id string, rep report.Report) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.tasks[id]
	if !ok {
		return
	}
	for i := range t.Steps {
		if t.Steps[i].Status != TaskCompleted {
			finishStep(&t.Steps[i], TaskCompleted, "complete")
		}
	}
	now := time.Now().UTC()
	t.Status = TaskCompleted
	t.CompletedAt = &now
	t.Progress = 100
	t.CurrentStep = ""
	t.Result = &rep
	ts.logger.Info("task completed", "task_id", id)
}

// Fail aborts the task, marking whichever step was running as failed.
func (ts *TaskStore) Fail(id, message string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.tasks[id]
	if !ok {
		return
	}
	for i := range t.Steps {
		if t.Steps[i].Status == TaskRunning {
			finishStep(&t.Steps[i], TaskFailed, message)
			break
		}
	}
	now := time.Now().UTC()
	t.Status = TaskFailed
	t.CompletedAt = &now
	t.Error = message
	ts.logger.Warn("task failed", "task_id", id, "error", message)
}

func findStep(t *Task, name string) *Step {
	for i := range t.Steps {
		if t.Steps[i].Name == name {
			return &t.Steps[i]
		}
	}
	return nil
}

func finishStep(s *Step, status TaskStatus, message string) {
	now := time.Now().UTC()
	s.Status = status
	s.Message = message
	s.CompletedAt = &now
	if s.StartedAt != nil {
		d := now.Sub(*s.StartedAt).Milliseconds()
		s.DurationMS = &d
	}
}

func refreshProgress(t *Task) {
	done := 0
	for _, s := range t.Steps {
		if s.Status == TaskCompleted {
			done++
		}
	}
	t.Progress = done * 100 / len(t.Steps)
}

func snapshot(t *Task) Task {
	out := *t
	out.Steps = make([]Step, len(t.Steps))
	copy(out.Steps, t.Steps)
	return out
}

// tracker receives step transitions from a screening run.
type tracker interface {
	start(step, message string)
	complete(step, message string)
}

type nopTracker struct{}

func (nopTracker) start(string, string)    {}
func (nopTracker) complete(string, string) {}

type storeTracker struct {
	store *TaskStore
	id    string
}

func (tr storeTracker) start(step, message string)    { tr.store.StartStep(tr.id, step, message) }
func (tr storeTracker) complete(step, message string) { tr.store.CompleteStep(tr.id, step, message) }

// StartTask registers a company screening task and runs it in the
// background. The returned snapshot is immediately serveable; progress
// flows through the store.
func (s *Screener) StartTask(store *TaskStore, req CompanyRequest) Task {
	t := store.Create(req.Company, req.Country)
	go s.runTask(store, t.ID, req)
	return t
}

func (s *Screener) runTask(store *TaskStore, id string, req CompanyRequest) {
	store.Run(id)
	rep, err := s.screenCompanyTracked(context.Background(), req, storeTracker{store: store, id: id})
	if err != nil {
		store.Fail(id, err.Error())
		return
	}
	store.Complete(id, rep)
}
