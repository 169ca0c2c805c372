// Package skip decides whether a malformed item may be dropped instead of failing the step.
package skip

import (
	"errors"

	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

// SkipPolicy counts dropped items against a limit.
type SkipPolicy interface {
	// ShouldSkip reports whether err may be skipped given the skips used so far.
	ShouldSkip(err error) bool
	// CanSkip reports whether the limit leaves room for another skip.
	CanSkip() bool
	// IncrementSkipCount records one skipped item.
	IncrementSkipCount()
	GetSkipCount() int
	GetSkipLimit() int
}

// DefaultSkipPolicyFactory creates limit based skip policies.
type DefaultSkipPolicyFactory struct{}

// NewDefaultSkipPolicyFactory creates a new DefaultSkipPolicyFactory.
func NewDefaultSkipPolicyFactory() *DefaultSkipPolicyFactory {
	return &DefaultSkipPolicyFactory{}
}

// Create returns a policy allowing up to skipLimit skips; 0 disables skipping.
// Besides BatchErrors marked skippable, errors matching one of the names in
// skippable (see exception.IsErrorOfType) may be skipped.
func (f *DefaultSkipPolicyFactory) Create(skipLimit int, skippable []string) SkipPolicy {
	return &limitPolicy{limit: skipLimit, skippable: skippable}
}

type limitPolicy struct {
	limit     int
	skippable []string
	used      int
}

func (p *limitPolicy) ShouldSkip(err error) bool {
	if err == nil || !p.CanSkip() {
		return false
	}
	var be *exception.BatchError
	if errors.As(err, &be) {
		if be.IsSkippable() {
			return true
		}
	}
	for _, name := range p.skippable {
		if exception.IsErrorOfType(err, name) {
			return true
		}
	}
	return false
}

func (p *limitPolicy) CanSkip() bool { return p.limit > 0 && p.used < p.limit }

func (p *limitPolicy) IncrementSkipCount() { p.used++ }

func (p *limitPolicy) GetSkipCount() int { return p.used }

func (p *limitPolicy) GetSkipLimit() int { return p.limit }

var _ SkipPolicy = (*limitPolicy)(nil)
