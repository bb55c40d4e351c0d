package constants

// ProcessStatus is the canonical status for rows in process.
type ProcessStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    ProcessStatus = "pending"    // accepted, waiting for a worker
	StatusProcessing ProcessStatus = "processing" // worker picked it up
	StatusCompleted  ProcessStatus = "completed"  // extraction ok, some rules may have failed
	StatusValidated  ProcessStatus = "validated"  // extraction ok and every rule passed
	StatusFailed     ProcessStatus = "failed"     // terminal failure for this run
)

// Terminal reports whether a status ends the current processing run.
// A completed process may still be promoted to validated (or demoted back
// to completed after a manual edit), but the worker is done with it.
func (s ProcessStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusValidated, StatusFailed:
		return true
	}
	return false
}
