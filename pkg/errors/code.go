package errors

// ErrorCode identifies a failure class.
//
// Ranges:
// 100-199: program loading and parsing
// 200-299: candidate-induced failures, converted to failed records
// 300-399: figure introspection
// 400-499: engine usage, surfaced to the caller
// 500-599: infrastructure
type ErrorCode int

const (
	Unknown ErrorCode = 0

	LoadFailed        ErrorCode = 100
	ParseFailed       ErrorCode = 101
	SyntaxUnavailable ErrorCode = 102

	CandidateRuntime  ErrorCode = 200
	Timeout           ErrorCode = 201
	MissingBinding    ErrorCode = 202
	TypeMismatch      ErrorCode = 203
	ToleranceExceeded ErrorCode = 204
	ShapeMismatch     ErrorCode = 205
	LengthMismatch    ErrorCode = 206
	KeyMismatch       ErrorCode = 207

	FigureNotFound ErrorCode = 300
	SeriesIndex    ErrorCode = 301

	NotExecuted  ErrorCode = 400
	UnknownKind  ErrorCode = 401
	InvalidParam ErrorCode = 402

	WorkerFailed ErrorCode = 500
	SuiteInvalid ErrorCode = 501
)

var codeMessages = map[ErrorCode]string{
	Unknown:           "unknown error",
	LoadFailed:        "program could not be loaded",
	ParseFailed:       "program does not parse",
	SyntaxUnavailable: "syntax tree not available",
	CandidateRuntime:  "program raised an error",
	Timeout:           "program exceeded its time budget",
	MissingBinding:    "variable not found",
	TypeMismatch:      "type mismatch",
	ToleranceExceeded: "value outside tolerance",
	ShapeMismatch:     "shape mismatch",
	LengthMismatch:    "length mismatch",
	KeyMismatch:       "key mismatch",
	FigureNotFound:    "figure not found",
	SeriesIndex:       "series not found",
	NotExecuted:       "script not executed",
	UnknownKind:       "unknown test kind",
	InvalidParam:      "invalid parameter",
	WorkerFailed:      "sandbox worker failed",
	SuiteInvalid:      "suite is invalid",
}

// Message returns the default message for the code.
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return codeMessages[Unknown]
}

// Name returns a stable snake_case name used in traces and metrics.
func (c ErrorCode) Name() string {
	switch c {
	case LoadFailed:
		return "load_failed"
	case ParseFailed:
		return "parse_failed"
	case SyntaxUnavailable:
		return "syntax_unavailable"
	case CandidateRuntime:
		return "candidate_runtime"
	case Timeout:
		return "timeout"
	case MissingBinding:
		return "missing_binding"
	case TypeMismatch:
		return "type_mismatch"
	case ToleranceExceeded:
		return "tolerance_exceeded"
	case ShapeMismatch:
		return "shape_mismatch"
	case LengthMismatch:
		return "length_mismatch"
	case KeyMismatch:
		return "key_mismatch"
	case FigureNotFound:
		return "figure_not_found"
	case SeriesIndex:
		return "series_index"
	case NotExecuted:
		return "not_executed"
	case UnknownKind:
		return "unknown_kind"
	case InvalidParam:
		return "invalid_param"
	case WorkerFailed:
		return "worker_failed"
	case SuiteInvalid:
		return "suite_invalid"
	}
	return "unknown"
}

// IsUsage reports whether the code signals a caller mistake rather than a
// candidate failure.
func (c ErrorCode) IsUsage() bool {
	return c >= 400 && c < 500
}
