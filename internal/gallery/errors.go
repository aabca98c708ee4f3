package gallery

import "errors"

// Provider operations, as reported in ProviderError.Op.
const (
	OpUpload = "upload"
	OpList   = "list"
	OpFetch  = "fetch"
)

// ErrBusy is returned when an upload gave up waiting for an admission slot.
var ErrBusy = errors.New("too many uploads in progress, try again later")

// ValidationError reports missing or unusable caller input. The provider is
// never contacted when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProviderError wraps a failure reported by the media provider. Its message
// is the provider's own, unchanged.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
