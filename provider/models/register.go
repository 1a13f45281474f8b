// Package models is the process-wide registry of models by name. Provider
// packages add their models here when they are first requested, so a model
// name travelling in a workflow command resolves to the same instance.
package models

import (
	"github.com/casualjim/ruminate/api"
	"github.com/casualjim/ruminate/internal/registry"
)

var Global = registry.New[api.Model]()

func Add(model api.Model) {
	Global.Add(model.Name(), model)
}

func Get(name string) (api.Model, bool) {
	return Global.Get(name)
}

// GetOrAdd returns the named model, creating it with modelF when missing.
func GetOrAdd(name string, modelF func() api.Model) api.Model {
	m, _ := Global.GetOrAdd(name, modelF)
	return m
}

func Del(name string) {
	Global.Del(name)
}

// Names returns the registered model names in sorted order.
func Names() []string {
	return Global.Names()
}
