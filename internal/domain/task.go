package domain

import "time"

// TaskKind identifies the category of background operation the worker runs.
type TaskKind string

const (
	KindDownload           TaskKind = "DOWNLOAD"
	KindDownloadAndInstall TaskKind = "DOWNLOAD_AND_INSTALL"
	KindInstallAPK         TaskKind = "INSTALL_APK"
	KindInstallLocalApp    TaskKind = "INSTALL_LOCAL_APP"
	KindUninstall          TaskKind = "UNINSTALL"
	KindBackupApp          TaskKind = "BACKUP_APP"
	KindRestoreBackup      TaskKind = "RESTORE_BACKUP"
	KindDonateApp          TaskKind = "DONATE_APP"
)

func (k TaskKind) Valid() bool {
	switch k {
	case KindDownload, KindDownloadAndInstall, KindInstallAPK, KindInstallLocalApp,
		KindUninstall, KindBackupApp, KindRestoreBackup, KindDonateApp:
		return true
	}
	return false
}

// TaskStatus represents the current status of a task
type TaskStatus string

const (
	StatusWaiting   TaskStatus = "waiting"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TaskRecord is the current known state of one worker task. Records are
// owned by the registry; readers always get copies. StartTime is stamped
// locally when the first report for the id arrives, and EndTime when the
// status first turns terminal, so "recent" ordering is observed-completion
// order, not worker-side completion order.
type TaskRecord struct {
	ID            uint64     `json:"id"`
	Kind          TaskKind   `json:"kind"`
	Status        TaskStatus `json:"status"`
	DisplayName   string     `json:"display_name,omitempty"`
	TotalProgress float64    `json:"total_progress"`
	CurrentStep   int        `json:"current_step"`
	TotalSteps    int        `json:"total_steps"`
	StepProgress  *float64   `json:"step_progress,omitempty"` // nil means indeterminate
	Message       string     `json:"message"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

// Finished reports whether the record is frozen in a terminal status.
func (t *TaskRecord) Finished() bool {
	return t.Status.Terminal()
}
