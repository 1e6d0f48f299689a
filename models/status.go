package models

// Status tracks a deal's position in the evaluation state machine. Deals only
// move forward: READY -> DROP during filtering, READY -> HOT/MAYBE/DROP after
// analysis, READY -> ERROR when the analyzer fails. The cached variants mark
// verdicts served from a prior same-day run.
type Status string

const (
	StatusReady      Status = "READY"
	StatusHot        Status = "HOT"
	StatusMaybe      Status = "MAYBE"
	StatusDrop       Status = "DROP"
	StatusError      Status = "ERROR"
	StatusHotCached  Status = "HOT (Cached)"
	StatusDropCached Status = "DROP (Cached)"
)

// Terminal reports whether the pipeline has finished with this deal.
func (s Status) Terminal() bool {
	switch s {
	case StatusHot, StatusDrop, StatusError, StatusHotCached, StatusDropCached:
		return true
	}
	return false
}

// Cached reports whether the verdict was served from the result cache.
func (s Status) Cached() bool {
	return s == StatusHotCached || s == StatusDropCached
}
