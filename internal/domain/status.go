package domain

// Status is the terminal classification of an account after its check
// settles. Exactly one status is assigned per account per run.
type Status string

const (
	StatusActive  Status = "active"
	StatusBanned  Status = "banned"
	StatusLimited Status = "limited"
	StatusUnknown Status = "unknown"
)

// Classify maps a settled check onto its terminal status.
//
// A check that failed (after its retries were exhausted) is Unknown
// regardless of any partially gathered signals. The ban check dominates the
// level check: an account with both a ban and level 0 is Banned. Level 0 on
// a successful check means no positive level was observed, which marks the
// account Limited.
func Classify(err error, bans []string, level int) Status {
	switch {
	case err != nil:
		return StatusUnknown
	case len(bans) > 0:
		return StatusBanned
	case level == 0:
		return StatusLimited
	default:
		return StatusActive
	}
}
