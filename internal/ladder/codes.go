package ladder

// Report codes submitted by a match participant. Wire values are fixed;
// an unset report is represented as a NULL column / nil pointer.
const (
	ReportDraw      = 0
	ReportP1Won     = 1
	ReportP2Won     = 2
	ReportSelfAbort = -3 // decrements the submitter's remaining aborts
	ReportNoShow    = -4 // never decrements
)

// Match results. An in-progress match has a NULL result; anything else is
// terminal. There is no separate status column anywhere - terminality is
// always derived from these values.
const (
	ResultDraw     = 0
	ResultP1Won    = 1
	ResultP2Won    = 2
	ResultAborted  = -1
	ResultConflict = -2
)

// ValidReport reports whether v is an acceptable player-submitted value.
// No-show (-4) is system-assigned only.
func ValidReport(v int) bool {
	switch v {
	case ReportDraw, ReportP1Won, ReportP2Won, ReportSelfAbort:
		return true
	}
	return false
}

// IsTerminalResult reports whether a result value ends a match.
func IsTerminalResult(v int) bool {
	switch v {
	case ResultDraw, ResultP1Won, ResultP2Won, ResultAborted, ResultConflict:
		return true
	}
	return false
}
