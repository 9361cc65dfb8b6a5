package models

// Operation selects what the executor does with a Request. The numeric
// values are part of the wire format.
type Operation int32

const (
	OpUnspecified Operation = 0
	OpCreate      Operation = 1
	OpRead        Operation = 2
	OpUpdate      Operation = 3
	OpDelete      Operation = 4
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "CREATE"
	case OpRead:
		return "READ"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	default:
		return "UNSPECIFIED"
	}
}

// Status is the outcome of a Request. The numeric values are part of the
// wire format.
type Status int32

const (
	StatusOK              Status = 0
	StatusNotFound        Status = 1
	StatusInvalidArgument Status = 2
	StatusInternalError   Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Request is one abstract CRUD operation. ID is used by READ, UPDATE and
// DELETE; Entry by CREATE and UPDATE.
type Request struct {
	Op    Operation
	ID    uint64
	Entry *Entry
}

// Response carries the outcome. Message is set on non-OK results; Entry is
// set on OK for CREATE, READ and UPDATE.
type Response struct {
	Status  Status
	Message string
	Entry   *Entry
}

// OK reports whether the response status is StatusOK.
func (r Response) OK() bool {
	return r.Status == StatusOK
}
