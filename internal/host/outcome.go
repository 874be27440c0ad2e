package host

// Class partitions host operations by how their failure propagates: fatal
// pipeline aborts, swallowed best-effort failures, or success.
type Class int

const (
	ClassOk Class = iota
	ClassSoft
	ClassHard
)

// Outcome is the result of a host-mutating call, with the caller-declared
// failure class attached. Best-effort operations return Soft outcomes instead
// of silently dropping their errors.
type Outcome struct {
	Class Class
	Err   error
}

func Ok() Outcome            { return Outcome{Class: ClassOk} }
func Soft(err error) Outcome { return Outcome{Class: ClassSoft, Err: err} }
func Hard(err error) Outcome { return Outcome{Class: ClassHard, Err: err} }

// Fatal reports whether the outcome must abort the pipeline.
func (o Outcome) Fatal() bool { return o.Class == ClassHard }

// Failed reports whether anything went wrong, fatal or not.
func (o Outcome) Failed() bool { return o.Class != ClassOk }
