package model

import "context"

// FeatureSource returns the session statistics string for a capture file.
// A missing entry yields an empty string, not an error.
type FeatureSource interface {
	SessionFeature(capturePath string) (string, error)
}

// FieldExtractor runs a protocol dissector over a capture and returns one
// tab separated line per packet, fields in request order.
type FieldExtractor interface {
	Extract(ctx context.Context, capturePath string, fields []string) ([]string, error)
}

// Writer defines a generic interface for persisting a finished dataset.
type Writer interface {
	Write(ds *Dataset) error
	Name() string
}

// Notifier defines a generic interface for sending notifications.
type Notifier interface {
	Send(subject, body string) error
}
