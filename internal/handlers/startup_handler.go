package handlers

import (
	"net/http"
	"sync"
)

// Startup step names reported by the readiness endpoint
const (
	StepConfig     = "Loading configuration"
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepCatalog    = "Loading catalog"
	StepServices   = "Initializing services"
	StepScheduler  = "Starting scheduler"
	StepReady      = "Server ready"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	Ready    bool
	Current  string
	Progress int
	Steps    []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

var startupStatus = newStartupStatus()

func newStartupStatus() *StartupStatus {
	names := []string{StepConfig, StepDatabase, StepMigrations, StepCatalog, StepServices, StepScheduler, StepReady}
	s := &StartupStatus{Current: "Initializing..."}
	for _, name := range names {
		s.Steps = append(s.Steps, StartupStep{Name: name})
	}
	return s
}

// SetCurrentStep updates the current initialization step
func SetCurrentStep(step string) {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()
	startupStatus.Current = step
}

// CompleteStep marks a step as completed and updates progress
func CompleteStep(stepName string) {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()

	for i := range startupStatus.Steps {
		if startupStatus.Steps[i].Name == stepName {
			startupStatus.Steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range startupStatus.Steps {
		if step.Completed {
			completed++
		}
	}
	startupStatus.Progress = (completed * 100) / len(startupStatus.Steps)
}

// MarkReady marks the server as fully initialized
func MarkReady() {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()
	for i := range startupStatus.Steps {
		startupStatus.Steps[i].Completed = true
	}
	startupStatus.Ready = true
	startupStatus.Current = StepReady
	startupStatus.Progress = 100
}

// IsReady returns whether the server is fully initialized
func IsReady() bool {
	startupStatus.mu.RLock()
	defer startupStatus.mu.RUnlock()
	return startupStatus.Ready
}

// Healthz reports readiness as JSON. It answers 503 until MarkReady is called.
func Healthz(w http.ResponseWriter, r *http.Request) {
	startupStatus.mu.RLock()
	snapshot := struct {
		Ready    bool          `json:"ready"`
		Current  string        `json:"current"`
		Progress int           `json:"progress"`
		Steps    []StartupStep `json:"steps"`
	}{
		Ready:    startupStatus.Ready,
		Current:  startupStatus.Current,
		Progress: startupStatus.Progress,
		Steps:    append([]StartupStep(nil), startupStatus.Steps...),
	}
	startupStatus.mu.RUnlock()

	status := http.StatusOK
	if !snapshot.Ready {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, snapshot)
}
