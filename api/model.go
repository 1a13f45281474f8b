package api

import "github.com/casualjim/ruminate/provider"

// Model is a named model served by a provider.
type Model interface {
	Name() string
	Provider() provider.Provider
}
