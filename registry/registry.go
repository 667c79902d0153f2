/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package registry recognizes hosted registry providers from a repository
// string and provisions remote repositories before a push.
package registry

import (
	"context"
	"strings"

	"github.com/cowdogmoo/monodist/errors"
)

// Repository is a remote image repository recognized by a Provider.
type Repository interface {
	// String returns the repository in its canonical textual form.
	String() string
	// Ensure creates the repository if it does not exist yet.
	Ensure(ctx context.Context, packageName string) error
}

// Provider recognizes repositories hosted by one registry service.
type Provider interface {
	Name() string
	// Match parses repository ("registry/name"). Not matching is a normal
	// outcome, not an error.
	Match(repository string) (Repository, bool)
}

// Providers is an ordered provider list. The first match wins.
type Providers []Provider

// Lookup returns the repository parsed by the first matching provider.
func (ps Providers) Lookup(repository string) (Repository, bool) {
	for _, p := range ps {
		if repo, ok := p.Match(repository); ok {
			return repo, true
		}
	}
	return nil, false
}

// Get returns the provider with the given name.
func (ps Providers) Get(name string) (Provider, bool) {
	for _, p := range ps {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Type selects how a registry is interpreted.
type Type string

const (
	// TypeAuto asks every provider in order.
	TypeAuto Type = "auto"
	// TypeECR requires the registry to be an ECR registry.
	TypeECR Type = "ecr"
	// TypeGeneric treats every registry as plain, never provisioning.
	TypeGeneric Type = "generic"
)

// ParseType parses a --registry-type value. Empty means TypeAuto.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeAuto, nil
	case TypeAuto, TypeECR, TypeGeneric:
		return t, nil
	default:
		return "", errors.Newf(errors.ConfigError, "unknown registry type %q", s).
			WithExplanation("Supported registry types are `auto`, `ecr` and `generic`.")
	}
}

// Resolve finds the provider-specific repository for repository according
// to the registry type. A nil Repository with a nil error means the
// registry is generic and needs no provisioning.
func Resolve(t Type, ps Providers, repository string) (Repository, error) {
	switch t {
	case TypeGeneric:
		return nil, nil
	case TypeECR:
		p, ok := ps.Get(ECRProviderName)
		if !ok {
			return nil, errors.New(errors.ConfigError, "no ECR provider configured")
		}
		repo, ok := p.Match(repository)
		if !ok {
			return nil, errors.Newf(errors.ConfigError, "`%s` is not an ECR repository", repository).
				WithExplanation("The registry type is `ecr`, so the registry must look like `<account>.dkr.ecr.<region>.amazonaws.com`.")
		}
		return repo, nil
	default:
		repo, ok := ps.Lookup(repository)
		if !ok {
			return nil, nil
		}
		return repo, nil
	}
}
