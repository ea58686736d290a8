package jdwp

// Command sets used by this client. Values are fixed by the JDWP
// specification.
const (
	CmdSetVirtualMachine  = 1
	CmdSetReferenceType   = 2
	CmdSetClassType       = 3
	CmdSetArrayType       = 4
	CmdSetObjectReference = 9
	CmdSetStringReference = 10
	CmdSetThreadReference = 11
	CmdSetArrayReference  = 13
	CmdSetEventRequest    = 15
	CmdSetEvent           = 64
)

// VirtualMachine command set.
const (
	VMVersion            = 1
	VMClassesBySignature = 2
	VMAllThreads         = 4
	VMIDSizes            = 7
	VMResume             = 9
	VMCreateString       = 11
)

// ReferenceType command set.
const (
	RefTypeSignature = 1
	RefTypeMethods   = 5
)

// ClassType command set.
const (
	ClassTypeInvokeMethod = 3
)

// ArrayType command set.
const (
	ArrayTypeNewInstance = 1
)

// ObjectReference command set.
const (
	ObjectRefInvokeMethod = 6
)

// StringReference command set.
const (
	StringRefValue = 1
)

// ArrayReference command set.
const (
	ArrayRefSetValues = 3
)

// Event command set. Composite events arrive as commands from the VM; this
// client never requests them but must tolerate their arrival.
const (
	EventComposite = 100
)

// Reply error codes. The subset the remote side can realistically produce
// for the commands above; unknown codes are still reported numerically.
const (
	ErrNone               = 0
	ErrInvalidThread      = 10
	ErrThreadNotSuspended = 13
	ErrInvalidObject      = 20
	ErrInvalidClass       = 21
	ErrClassNotPrepared   = 22
	ErrInvalidMethodID    = 23
	ErrInvalidFieldID     = 25
	ErrNotImplemented     = 99
	ErrNullPointer        = 100
	ErrAbsentInformation  = 101
	ErrIllegalArgument    = 103
	ErrOutOfMemory        = 110
	ErrAccessDenied       = 111
	ErrVMDead             = 112
	ErrInternal           = 113
	ErrUnattachedThread   = 115
	ErrInvalidTag         = 500
	ErrAlreadyInvoking    = 502
	ErrInvalidIndex       = 503
	ErrInvalidLength      = 504
	ErrInvalidString      = 506
	ErrInvalidArray       = 508
	ErrInvalidCount       = 512
)

var errText = map[uint16]string{
	ErrInvalidThread:      "INVALID_THREAD",
	ErrThreadNotSuspended: "THREAD_NOT_SUSPENDED",
	ErrInvalidObject:      "INVALID_OBJECT",
	ErrInvalidClass:       "INVALID_CLASS",
	ErrClassNotPrepared:   "CLASS_NOT_PREPARED",
	ErrInvalidMethodID:    "INVALID_METHODID",
	ErrInvalidFieldID:     "INVALID_FIELDID",
	ErrNotImplemented:     "NOT_IMPLEMENTED",
	ErrNullPointer:        "NULL_POINTER",
	ErrAbsentInformation:  "ABSENT_INFORMATION",
	ErrIllegalArgument:    "ILLEGAL_ARGUMENT",
	ErrOutOfMemory:        "OUT_OF_MEMORY",
	ErrAccessDenied:       "ACCESS_DENIED",
	ErrVMDead:             "VM_DEAD",
	ErrInternal:           "INTERNAL",
	ErrUnattachedThread:   "UNATTACHED_THREAD",
	ErrInvalidTag:         "INVALID_TAG",
	ErrAlreadyInvoking:    "ALREADY_INVOKING",
	ErrInvalidIndex:       "INVALID_INDEX",
	ErrInvalidLength:      "INVALID_LENGTH",
	ErrInvalidString:      "INVALID_STRING",
	ErrInvalidArray:       "INVALID_ARRAY",
	ErrInvalidCount:       "INVALID_COUNT",
}

// ErrorText returns the standard name of a reply error code, or the empty
// string if the code is unknown.
func ErrorText(code uint16) string {
	return errText[code]
}
