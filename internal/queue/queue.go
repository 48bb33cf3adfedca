package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

// ImportTopic carries one event per finished root import.
var ImportTopic = "mediahub.imports"

// ImportEvent describes a finished root import.
type ImportEvent struct {
	ResourceID  uuid.UUID     `json:"resourceId"`
	Title       string        `json:"title"`
	Source      source.Type   `json:"source"`
	Kind        resource.Kind `json:"type"`
	URI         string        `json:"uri"`
	User        string        `json:"user,omitempty"`
	Created     bool          `json:"created"`
	Diagnostics int           `json:"diagnostics"`
	At          time.Time     `json:"at"`
}

type ImportQueue interface {
	// PublishImport appends an import event to the queue.
	PublishImport(ctx context.Context, ev *ImportEvent) error
	// SubscribeImports streams events until ctx is done.
	SubscribeImports(ctx context.Context) (<-chan *ImportEvent, error)
	Close() error
}
