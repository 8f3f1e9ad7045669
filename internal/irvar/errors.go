package irvar

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvariantError reports an internal inconsistency detected while naming
// stack slots. It is raised with panic: continuing would emit wrong code.
type InvariantError struct {
	Message string
	// Subject is the base name of the variable the operation was applied to.
	Subject string
	cause   error
}

func (e *InvariantError) Error() string {
	if e.Subject == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (variable %s)", e.Message, e.Subject)
}

// Cause returns the underlying error carrying the stack trace of the failure.
func (e *InvariantError) Cause() error { return e.cause }

// Format prints the stack trace with %+v.
func (e *InvariantError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%+v", e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

func fail(subject, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	err := &InvariantError{Message: msg, Subject: subject}
	err.cause = errors.New(err.Error())
	panic(err)
}

func assert(cond bool, subject, format string, args ...interface{}) {
	if !cond {
		fail(subject, format, args...)
	}
}

// Catch runs fn and turns an InvariantError panic into a returned error.
// Other panics are propagated.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InvariantError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// IsInvariant reports whether err is, or wraps, an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
