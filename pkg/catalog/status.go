package catalog

import "fmt"

// Status is the workflow state of a catalog record. The pipeline only ever
// moves records forward through the transition table; force-publish is an
// explicit override on the publish path, not a table edge.
type Status string

const (
	StatusRaw             Status = "RAW"
	StatusEnriched        Status = "ENRICHED"
	StatusReadyForConfirm Status = "READY_FOR_CONFIRM"
	StatusPublished       Status = "PUBLISHED"

	// Side states observed outside the main pipeline.
	StatusImageFailed         Status = "IMAGE_FAILED"
	StatusModificationRequest Status = "MODIFICATION_REQUEST"
)

var transitions = map[Status][]Status{
	StatusRaw:             {StatusEnriched},
	StatusEnriched:        {StatusReadyForConfirm, StatusImageFailed},
	StatusImageFailed:     {StatusReadyForConfirm},
	StatusReadyForConfirm: {StatusPublished, StatusModificationRequest},
	StatusPublished:       {StatusModificationRequest},
}

func (s Status) Valid() bool {
	switch s {
	case StatusRaw, StatusEnriched, StatusReadyForConfirm, StatusPublished,
		StatusImageFailed, StatusModificationRequest:
		return true
	}
	return false
}

// CanAdvance reports whether the transition table allows moving to next.
func (s Status) CanAdvance(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Advance validates a forward transition and returns the fields to persist.
// PUBLISHED keeps IsPublished in step so the flag never lags the state on
// the normal path.
func (s Status) Advance(next Status) (map[string]interface{}, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("unknown status %q", next)
	}
	if !s.CanAdvance(next) {
		return nil, fmt.Errorf("illegal transition %s -> %s", s, next)
	}
	fields := map[string]interface{}{"status": string(next)}
	if next == StatusPublished {
		fields["is_published"] = true
	}
	return fields, nil
}
