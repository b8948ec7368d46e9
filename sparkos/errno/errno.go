package errno

// Errno is a kernel result code.
//
// Core operations return it as an error; nil means success.
type Errno uint8

const (
	// EINVAL reports malformed input: out-of-range signal number, bad mode.
	EINVAL Errno = iota + 1
	// EBUSY reports a zero-timeout attempt against a contended object.
	EBUSY
	// EAGAIN reports an elapsed wait or an exhausted bounded pool.
	EAGAIN
	// ESRCH reports a missing or retired target thread.
	ESRCH
	// EPERM reports a denied object access or a non-owner release.
	EPERM
	// ENOMEM reports that a fixed table has no free slot.
	ENOMEM
)

func (e Errno) Error() string { return e.String() }

func (e Errno) String() string {
	switch e {
	case EINVAL:
		return "invalid argument"
	case EBUSY:
		return "would block"
	case EAGAIN:
		return "try again"
	case ESRCH:
		return "no such process"
	case EPERM:
		return "operation not permitted"
	case ENOMEM:
		return "out of memory"
	default:
		return "unknown"
	}
}

// Name returns the symbolic constant name, e.g. "EAGAIN".
func (e Errno) Name() string {
	switch e {
	case EINVAL:
		return "EINVAL"
	case EBUSY:
		return "EBUSY"
	case EAGAIN:
		return "EAGAIN"
	case ESRCH:
		return "ESRCH"
	case EPERM:
		return "EPERM"
	case ENOMEM:
		return "ENOMEM"
	default:
		return "E?"
	}
}
