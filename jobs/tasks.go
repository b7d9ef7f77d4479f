// Package jobs defines the background tasks and the asynq worker that runs
// them.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLibraryOverdueScan marks past-due loans overdue.
	TaskLibraryOverdueScan = "library:overdue_scan"
	// TaskMaintenanceWindow applies the scheduled maintenance window to the
	// maintenance flag.
	TaskMaintenanceWindow = "maintenance:window"
)

// NewOverdueScanTask constructs the overdue sweep task. It carries no payload;
// the sweep always covers every borrowed loan.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskLibraryOverdueScan, nil)
}

// NewMaintenanceWindowTask constructs the maintenance-window task.
func NewMaintenanceWindowTask() *asynq.Task {
	return asynq.NewTask(TaskMaintenanceWindow, nil)
}
