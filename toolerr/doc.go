// Package toolerr provides structured errors for tool invocations: a code,
// a class derived from the code, an optional cause and recovery hints.
//
// # Error Codes
//
//   - ErrCodeInvalidInput: arguments failed input schema validation
//   - ErrCodeExecutionFailed: the tool handler returned an error
//   - ErrCodeMalformedRequest: the request envelope could not be decoded
//   - ErrCodeTimeout: an operation timed out
//   - ErrCodeDependencyMissing: an optional backend is unreachable
//
// An unknown tool name is not an error: the dispatcher reports
// it as ordinary result content.
//
// # Usage
//
//	err := toolerr.InvalidInput("fetch", validationErr)
//
//	var toolErr *toolerr.Error
//	if errors.As(err, &toolErr) {
//		fmt.Println(toolErr.Code, toolErr.Class)
//	}
//
//	if errors.Is(err, toolerr.ErrInvalidInput) {
//		// reply 422
//	}
package toolerr
