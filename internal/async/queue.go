package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one scheduled background analysis. The payload travels with the job
// because the object store copy is for auditing, not for re-reads.
type Job struct {
	DocumentID  uuid.UUID
	PartnerID   string
	Filename    string
	Payload     []byte
	Sandbox     bool
	SubmittedAt time.Time
}

// Processor runs the background portion of the pipeline for one job. Failures
// are recorded on the document record; the returned error exists only for
// worker logging.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
