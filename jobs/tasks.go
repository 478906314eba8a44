// Package jobs contains background tasks executed by the asynq worker.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRegisterIntegrity recomputes register balances from raw rows and
	// compares them with SQL aggregation.
	TaskRegisterIntegrity = "register:integrity"
)

// RegisterIntegrityPayload selects which registers to verify; empty means all.
type RegisterIntegrityPayload struct {
	Registers []string `json:"registers,omitempty"`
}

// NewRegisterIntegrityTask constructs an Asynq task.
func NewRegisterIntegrityTask(payload RegisterIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRegisterIntegrity, data), nil
}
