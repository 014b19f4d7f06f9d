package chains

import "errors"

var (
	// ErrUnsupportedChain marks a chain name that is not in the registry.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrUnknownToken marks a token with no decimal precision entry.
	ErrUnknownToken = errors.New("unknown token")
)
