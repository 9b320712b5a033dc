package allauth

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// ErrProviderUnavailable is returned when the provider cannot be reached or
// answers with something other than an authentication payload.
var ErrProviderUnavailable = goerrors.New("authentication provider unavailable", goerrors.CategoryOperation).
	WithTextCode("AUTH_PROVIDER_UNAVAILABLE").
	WithCode(502)

// ProviderError captures normalized provider response details.
type ProviderError struct {
	Operation string
	Method    string
	Path      string
	Status    int
	Body      string
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "allauth error"
	}
	if e.Err != nil {
		return fmt.Sprintf("allauth %s failed: %v", e.Operation, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("allauth %s failed: status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("allauth %s failed", e.Operation)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Method != "" {
		meta["method"] = e.Method
	}
	if e.Path != "" {
		meta["path"] = e.Path
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Body != "" {
		meta["body"] = e.Body
	}
	return meta
}

func wrapProviderError(err error) error {
	meta := map[string]any{}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	clone := ErrProviderUnavailable.Clone()
	if clone == nil {
		clone = ErrProviderUnavailable
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}
