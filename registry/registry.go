// Copyright 2023 The Vouch Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package registry exposes the configuration options of pluggable entities,
// such as signer providers, at run time. A CLI can enumerate a registry's
// entries and build flags for every available option without compile-time
// knowledge of the providers.
package registry

import (
	"fmt"
	"time"

	"github.com/vouchsafe/go-vouch/log"
)

// Registry holds the registered entities of one pluggable kind.
type Registry[T any] struct {
	entriesByName map[string]Entry[T]
}

// FactoryFunc creates an instantiation of an entity.
type FactoryFunc[T any] func() T

// Entry describes one registered entity: its factory, name, and configurable
// options.
type Entry[T any] struct {
	Factory FactoryFunc[T]
	Name    string
	Options []Configurer
}

func New[T any]() Registry[T] {
	return Registry[T]{
		entriesByName: make(map[string]Entry[T]),
	}
}

// Register adds an entity to the registry under the given name.
func (r Registry[T]) Register(name string, factoryFunc FactoryFunc[T], opts ...Configurer) Entry[T] {
	entry := Entry[T]{
		Name:    name,
		Factory: factoryFunc,
		Options: opts,
	}

	r.entriesByName[name] = entry
	return entry
}

// Options returns the available options for the entity with the provided
// name. The boolean return value is false if no such entity is registered.
func (r Registry[T]) Options(name string) ([]Configurer, bool) {
	entry, ok := r.entriesByName[name]
	return entry.Options, ok
}

// Entry returns the registry entry for the entity with the provided name.
// The boolean return value is false if no such entity is registered.
func (r Registry[T]) Entry(name string) (Entry[T], bool) {
	entry, ok := r.entriesByName[name]
	return entry, ok
}

// AllEntries returns every entry in the registry.
func (r Registry[T]) AllEntries() []Entry[T] {
	results := make([]Entry[T], 0, len(r.entriesByName))
	for _, registration := range r.entriesByName {
		results = append(results, registration)
	}

	return results
}

// NewEntity creates a new entity with its options' default values set, then
// applies any provided setters.
func (r Registry[T]) NewEntity(name string, optSetters ...func(T) (T, error)) (T, error) {
	var result T
	entry, ok := r.Entry(name)
	if !ok {
		return result, fmt.Errorf("could not find entry with name %v", name)
	}

	result, err := SetDefaultVals(entry.Factory(), entry.Options)
	if err != nil {
		return result, fmt.Errorf("could not set default values: %w", err)
	}

	return SetOptions(result, optSetters...)
}

// NewEntityFromConfigMap creates a new entity with options set from the
// values in the config map, keyed by option name.
func (r Registry[T]) NewEntityFromConfigMap(name string, configMap map[string]any) (T, error) {
	var result T
	entry, ok := r.Entry(name)
	if !ok {
		return result, fmt.Errorf("could not find entry with name %v", name)
	}

	result, err := SetDefaultVals(entry.Factory(), entry.Options)
	if err != nil {
		return result, fmt.Errorf("could not set default values: %w", err)
	}

	return SetOptionsFromConfigMap(result, entry.Options, configMap)
}

func SetOptions[T any](entity T, optSetters ...func(T) (T, error)) (T, error) {
	var err error
	result := entity
	for _, setter := range optSetters {
		result, err = setter(result)
		if err != nil {
			return result, err
		}
	}

	return result, err
}

// SetDefaultVals calls every option's setter with that option's default
// value.
func SetDefaultVals[T any](entity T, opts []Configurer) (T, error) {
	var err error
	for _, opt := range opts {
		switch o := opt.(type) {
		case *ConfigOption[T, int]:
			entity, err = o.Setter()(entity, o.DefaultVal())
		case *ConfigOption[T, string]:
			entity, err = o.Setter()(entity, o.DefaultVal())
		case *ConfigOption[T, []string]:
			entity, err = o.Setter()(entity, o.DefaultVal())
		case *ConfigOption[T, bool]:
			entity, err = o.Setter()(entity, o.DefaultVal())
		case *ConfigOption[T, time.Duration]:
			entity, err = o.Setter()(entity, o.DefaultVal())
		}

		if err != nil {
			return entity, err
		}
	}

	return entity, nil
}

func SetOptionsFromConfigMap[T any](entity T, configurers []Configurer, configMap map[string]any) (T, error) {
	optsByName := make(map[string]Configurer)
	for _, opt := range configurers {
		optsByName[opt.Name()] = opt
	}

	var err error
	for name, value := range configMap {
		opt, ok := optsByName[name]
		if !ok {
			log.Debugf("unknown option name in config map: %v", name)
			continue
		}

		switch o := opt.(type) {
		case *ConfigOption[T, int]:
			val, ok := value.(int)
			if !ok {
				return entity, fmt.Errorf("expected value for option %v to be an int but got %T", name, value)
			}
			entity, err = o.Setter()(entity, val)
		case *ConfigOption[T, string]:
			val, ok := value.(string)
			if !ok {
				return entity, fmt.Errorf("expected value for option %v to be a string but got %T", name, value)
			}
			entity, err = o.Setter()(entity, val)
		case *ConfigOption[T, []string]:
			val, ok := value.([]string)
			if !ok {
				return entity, fmt.Errorf("expected value for option %v to be a string slice but got %T", name, value)
			}
			entity, err = o.Setter()(entity, val)
		case *ConfigOption[T, bool]:
			val, ok := value.(bool)
			if !ok {
				return entity, fmt.Errorf("expected value for option %v to be a bool but got %T", name, value)
			}
			entity, err = o.Setter()(entity, val)
		case *ConfigOption[T, time.Duration]:
			val, ok := value.(time.Duration)
			if !ok {
				return entity, fmt.Errorf("expected value for option %v to be a duration but got %T", name, value)
			}
			entity, err = o.Setter()(entity, val)
		}

		if err != nil {
			return entity, err
		}
	}

	return entity, nil
}
