package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotWarmup refreshes the fallback snapshots of list pages.
	TaskSnapshotWarmup = "snapshots:warmup"
)

// SnapshotWarmupPayload names the resources to refresh. An empty list means
// every registered resource.
type SnapshotWarmupPayload struct {
	Resources []string `json:"resources,omitempty"`
}

// NewSnapshotWarmupTask constructs an Asynq task.
func NewSnapshotWarmupTask(resources ...string) (*asynq.Task, error) {
	data, err := json.Marshal(SnapshotWarmupPayload{Resources: resources})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotWarmup, data, asynq.MaxRetry(3), asynq.Queue(QueueDefault)), nil
}
