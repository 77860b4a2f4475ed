package errors

// Config errors

func ConfigNotFound(path string) *BridgeError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *BridgeError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *BridgeError {
	return New(CategoryValidation, SeverityError, "invalid "+field+": "+reason).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Companion server errors

func ServerUnreachable(host string, port int, cause error) *BridgeError {
	return WrapRetryable(cause, CategoryNetwork, SeverityWarning, "server unreachable").
		WithContext("host", host).
		WithContext("port", port)
}

func WrongService(host string, port int) *BridgeError {
	return New(CategoryIdentity, SeverityWarning, "not the browser tools server").
		WithContext("host", host).
		WithContext("port", port)
}

func DiscoveryExhausted(checked int) *BridgeError {
	return New(CategoryDiscovery, SeverityWarning, "no server found").
		WithContext("checked", checked)
}

// Storage errors

func StorageError(operation string, cause error) *BridgeError {
	return Wrap(cause, CategoryStorage, SeverityError, "storage operation failed").
		WithContext("operation", operation)
}

func InternalError(message string, cause error) *BridgeError {
	return Wrap(cause, CategoryInternal, SeverityError, message)
}
