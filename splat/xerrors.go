package splat

import "errors"

// ErrConfiguration is returned synchronously at the call site for bad lengths, a bad SH
// degree, or an out-of-range option — the ConfigurationError kind from §7.
var ErrConfiguration = errors.New("splat: configuration error")
