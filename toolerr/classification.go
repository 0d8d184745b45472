package toolerr

// ErrorClass groups error codes by what a caller can do about them.
type ErrorClass string

const (
	// ErrorClassSemantic: the request itself is wrong; fix the arguments.
	ErrorClassSemantic ErrorClass = "semantic"

	// ErrorClassInfrastructure: a backend (redis, etcd) is missing or down.
	ErrorClassInfrastructure ErrorClass = "infrastructure"

	// ErrorClassTransient: the same request may succeed later.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent: the handler failed and will fail again.
	ErrorClassPermanent ErrorClass = "permanent"
)

// RecoveryStrategy names the action a hint suggests.
type RecoveryStrategy string

const (
	StrategyRetry          RecoveryStrategy = "retry"
	StrategyModifyParams   RecoveryStrategy = "modify_params"
	StrategyUseAlternative RecoveryStrategy = "use_alternative_tool"
)

// RecoveryHint suggests how to recover from an error. Hints with a lower
// Priority come first.
type RecoveryHint struct {
	Strategy    RecoveryStrategy `json:"strategy"`
	Alternative string           `json:"alternative,omitempty"`
	Reason      string           `json:"reason"`
	Priority    int              `json:"priority"`
}

// DefaultClassForCode maps a code to its class. Unknown codes are transient.
func DefaultClassForCode(code string) ErrorClass {
	switch code {
	case ErrCodeInvalidInput, ErrCodeMalformedRequest:
		return ErrorClassSemantic
	case ErrCodeDependencyMissing:
		return ErrorClassInfrastructure
	case ErrCodeExecutionFailed:
		return ErrorClassPermanent
	default:
		return ErrorClassTransient
	}
}

// IsRetryable reports whether an error of this class is worth retrying unchanged.
func (c ErrorClass) IsRetryable() bool {
	return c == ErrorClassTransient || c == ErrorClassInfrastructure
}
