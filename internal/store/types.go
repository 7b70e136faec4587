// Package store persists ranking inputs and final region selections.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultUserID is recorded when a request carries no id.
const DefaultUserID = "anonymous"

// ErrInvalidSelection is returned when a selection lacks a required field.
var ErrInvalidSelection = errors.New("invalid selection")

// InputRecord is the ranking request a user submitted, with the regions it
// produced.
type InputRecord struct {
	ID         string    `json:"id"`
	EC2        int       `json:"ec2"`
	EC2Type    string    `json:"ec2type"`
	S3         int       `json:"s3"`
	RDS        int       `json:"rds"`
	Top3Region []string  `json:"top3_region"`
	SavedAt    time.Time `json:"-"`
}

// SelectionRecord is the region a user finally chose, with the repository
// and key handed to the build webhook.
type SelectionRecord struct {
	ID             string    `json:"id"`
	SelectedRegion string    `json:"selectedRegion"`
	RepoURL        string    `json:"githubUrl"`
	AccessKey      string    `json:"accessKey"`
	SavedAt        time.Time `json:"-"`
}

// Validate reports every missing field.
func (s SelectionRecord) Validate() error {
	var missing []string
	if strings.TrimSpace(s.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(s.SelectedRegion) == "" {
		missing = append(missing, "selectedRegion")
	}
	if strings.TrimSpace(s.RepoURL) == "" {
		missing = append(missing, "githubUrl")
	}
	if strings.TrimSpace(s.AccessKey) == "" {
		missing = append(missing, "accessKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSelection, strings.Join(missing, ", "))
	}
	return nil
}

// Store persists records. Implementations are safe for concurrent use.
type Store interface {
	// SaveInput records a ranking input and returns a reference to it.
	SaveInput(ctx context.Context, rec InputRecord) (string, error)
	// SaveSelection validates and records a final selection.
	SaveSelection(ctx context.Context, rec SelectionRecord) (string, error)
	// Inputs lists saved inputs oldest first. An empty userID lists all.
	Inputs(ctx context.Context, userID string) ([]InputRecord, error)
	// Selections lists saved selections oldest first. An empty userID lists all.
	Selections(ctx context.Context, userID string) ([]SelectionRecord, error)
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns a store for the driver. The file driver writes to every path;
// the sqlite driver opens the first path as its database.
func Open(driver string, paths []string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverFile:
		return NewFileStore(paths...)
	case DriverSQLite:
		if len(paths) == 0 || paths[0] == "" {
			return nil, errors.New("sqlite store requires a database path")
		}
		return OpenSQLite(paths[0])
	default:
		return nil, fmt.Errorf("unknown store driver %q (use file or sqlite)", driver)
	}
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultUserID
	}
	return id
}

// MaskKey hides all but the last four characters of an access key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
