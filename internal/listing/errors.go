package listing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure so callers can branch without matching strings.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a local, field-scoped failure raised before any request.
	KindValidation
	// KindNetwork means the request never produced a response.
	KindNetwork
	// KindServer is a non-2xx response.
	KindServer
	// KindMalformed is a 2xx response whose body could not be read.
	KindMalformed
	// KindBusy rejects a second mutation on an entity that is still submitting.
	KindBusy
	// KindDependency blocks deleting an entity that others still reference.
	KindDependency
	// KindConfirmation rejects a delete that was not confirmed.
	KindConfirmation
	// KindNotFound means the id is not part of the local collection.
	KindNotFound
	// KindClosed is returned once the controller has been disposed.
	KindClosed
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindValidation:   "validation",
	KindNetwork:      "network",
	KindServer:       "server",
	KindMalformed:    "malformed",
	KindBusy:         "busy",
	KindDependency:   "dependency",
	KindConfirmation: "confirmation",
	KindNotFound:     "not_found",
	KindClosed:       "closed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// User-facing fallbacks when the server gives no usable message.
const (
	GenericFailureMessage   = "request failed"
	MalformedMessage        = "the server returned an unreadable response"
	NetworkMessage          = "the server could not be reached"
	ValidationMessage       = "please correct the highlighted fields"
	ConfirmationMessage     = "deletion must be confirmed"
	BusyMessage             = "a change to this record is already being saved"
	ClosedMessage           = "this page has been closed"
	dependencyMessagePrefix = "cannot delete"
)

// Error is the single failure type returned by controllers and sources.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("listing: ")
	b.WriteString(e.Kind.String())
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString(" [")
		for i, name := range names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(" ")
			b.WriteString(e.Fields[name])
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf reports the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return KindUnknown
}

// Message returns the text to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var lerr *Error
	if errors.As(err, &lerr) && lerr.Message != "" {
		return lerr.Message
	}
	return GenericFailureMessage
}

// ValidationError builds a KindValidation error from per-field messages.
func ValidationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: ValidationMessage, Fields: fields}
}

// NetworkError wraps a transport failure.
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: NetworkMessage, Err: err}
}

// ServerError builds a KindServer error; an empty message falls back to the generic one.
func ServerError(status int, message string) *Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = GenericFailureMessage
	}
	return &Error{Kind: KindServer, Status: status, Message: message}
}

// MalformedError reports an unreadable 2xx body.
func MalformedError(status int, err error) *Error {
	return &Error{Kind: KindMalformed, Status: status, Message: MalformedMessage, Err: err}
}

// DependencyError blocks a delete; reason is shown to the user.
func DependencyError(reason string) *Error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "the record is still in use"
	}
	if !strings.HasPrefix(strings.ToLower(reason), dependencyMessagePrefix) {
		reason = dependencyMessagePrefix + ": " + reason
	}
	return &Error{Kind: KindDependency, Message: reason}
}

func notFoundError(resource string, id int64) *Error {
	if resource == "" {
		resource = "list"
	}
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("record %d not found in %s", id, resource)}
}

func busyError() *Error {
	return &Error{Kind: KindBusy, Message: BusyMessage}
}

func confirmationError() *Error {
	return &Error{Kind: KindConfirmation, Message: ConfirmationMessage}
}

func closedError() *Error {
	return &Error{Kind: KindClosed, Message: ClosedMessage}
}

// classify normalises any error returned by a Source.
func classify(err error) *Error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	return NetworkError(err)
}
