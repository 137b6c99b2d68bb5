package clients

import "fmt"

// FetchError represents a failed upstream feed request: either a non-2xx
// response or a transport error after retries were exhausted.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch failed: status %d (%s)", e.Source, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%s fetch failed: %v (%s)", e.Source, e.Err, e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the failure is worth retrying on a later
// run: server-side errors and transport failures are, client errors are
// not.
func (e *FetchError) IsTransient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}
