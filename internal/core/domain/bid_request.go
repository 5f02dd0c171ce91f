package domain

import (
	"errors"
	"fmt"
	"time"
)

// Attributes are the targeting attributes of a bid request. The transport
// layer normalises them before the request reaches the core.
type Attributes struct {
	Site     string
	Geo      string
	Device   string
	Language string
	Segments []string
}

// BidRequest is a single auction for one impression. It is immutable once
// received and owned by the session that handles it.
type BidRequest struct {
	ID         string
	ImpID      string
	Exchange   string
	Timestamp  time.Time
	Deadline   time.Time
	FloorPrice int64
	Attributes Attributes
}

// HourOfWeek returns the hour-of-week slot the auction happens in.
func (r *BidRequest) HourOfWeek() int {
	ts := r.Timestamp.UTC()
	return HourOfWeek(int(ts.Weekday()), ts.Hour())
}

// Validate checks the request for malformed fields.
func (r *BidRequest) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("missing request id"))
	}
	if r.Deadline.IsZero() {
		errs = append(errs, errors.New("missing deadline"))
	}
	if r.FloorPrice < 0 {
		errs = append(errs, fmt.Errorf("negative floor price %d", r.FloorPrice))
	}
	for i, s := range r.Attributes.Segments {
		if s == "" {
			errs = append(errs, fmt.Errorf("empty segment at index %d", i))
		}
	}
	return errors.Join(errs...)
}
