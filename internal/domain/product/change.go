package product

import (
	"fmt"
	"strings"
	"time"
)

// ChangeKind is the closed set of change-event kinds.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "CREATE"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ParseChangeKind accepts the kind case-insensitively, in imperative or
// past-tense form (CREATE/CREATED and so on).
func ParseChangeKind(raw string) (ChangeKind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CREATE", "CREATED":
		return ChangeCreate, nil
	case "UPDATE", "UPDATED":
		return ChangeUpdate, nil
	case "DELETE", "DELETED":
		return ChangeDelete, nil
	default:
		return "", NewError(KindInvalidMessage, fmt.Sprintf("unknown change type: %q", raw))
	}
}

// ChangeEvent is one decoded change message. It fully determines a single
// projection step and is never persisted.
type ChangeEvent struct {
	ProductID   ID
	Name        Name
	Description *string
	Category    *string
	Price       *Price
	Kind        ChangeKind
	Timestamp   time.Time
	Version     int64
}
