package constants

// JobStatus is the canonical status for rows in upload_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // waiting in the upload queue
	JobStatusRunning JobStatus = "RUNNING" // extraction in progress
	JobStatusOK      JobStatus = "OK"      // questions extracted and stored
	JobStatusEmpty   JobStatus = "EMPTY"   // document read, no questions found
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)
