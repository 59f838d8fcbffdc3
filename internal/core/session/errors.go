package session

import "fmt"

// Kind classifies a session-level failure for the CLI's exit-code mapping
// and for callers that want to branch on what went wrong without string
// matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindProtocolFraming
	KindBranchNotFound
	KindPackCorrupt
	KindDeltaCorrupt
	KindMalformedObject
	KindDotGitPresent
	KindModifiedLocalFile
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocolFraming:
		return "protocol-framing"
	case KindBranchNotFound:
		return "branch-not-found"
	case KindPackCorrupt:
		return "pack-corrupt"
	case KindDeltaCorrupt:
		return "delta-corrupt"
	case KindMalformedObject:
		return "malformed-object"
	case KindDotGitPresent:
		return "dot-git-present"
	case KindModifiedLocalFile:
		return "modified-local-file"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the Kind the CLI front-end uses to
// pick a process exit code.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// ExitCode maps a session.Error's Kind to the process exit code table
// documented for the CLI front-end: distinguishing a dead remote from
// local drift lets scripts react differently to each.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *Error
	if !asSessionError(err, &se) {
		return 1
	}
	switch se.Kind {
	case KindNetwork, KindProtocolFraming, KindBranchNotFound:
		return 2
	case KindPackCorrupt, KindDeltaCorrupt, KindMalformedObject:
		return 3
	case KindModifiedLocalFile, KindDotGitPresent:
		return 4
	default:
		return 1
	}
}

func asSessionError(err error, target **Error) bool {
	for err != nil {
		if se, ok := err.(*Error); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
