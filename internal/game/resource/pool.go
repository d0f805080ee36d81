// Package resource tracks limited-use class features and spell slots as
// pools with a maximum, a used count and a recharge trigger.
package resource

import (
	"errors"
	"fmt"
)

// ErrInsufficientResource is matched by every *InsufficientResourceError.
var ErrInsufficientResource = errors.New("insufficient resource")

// InsufficientResourceError reports a Use that would exceed a pool's maximum.
type InsufficientResourceError struct {
	Key       string
	Requested int
	Remaining int
}

func (e *InsufficientResourceError) Error() string {
	return fmt.Sprintf("resource %q: requested %d, %d remaining", e.Key, e.Requested, e.Remaining)
}

// Is reports whether target is ErrInsufficientResource.
func (e *InsufficientResourceError) Is(target error) bool {
	return target == ErrInsufficientResource
}

// Recharge is the trigger that resets a pool.
type Recharge int

const (
	RechargeShortRest Recharge = iota
	RechargeLongRest
	RechargeDaily
	RechargeManual
	RechargeNever
)

var rechargeNames = [...]string{"short_rest", "long_rest", "daily", "manual", "never"}

// String returns the wire name of r.
func (r Recharge) String() string {
	if r < 0 || int(r) >= len(rechargeNames) {
		return "unknown"
	}
	return rechargeNames[r]
}

// ParseRecharge converts a wire name into a Recharge.
func ParseRecharge(s string) (Recharge, error) {
	for i, n := range rechargeNames {
		if n == s {
			return Recharge(i), nil
		}
	}
	return 0, fmt.Errorf("resource: unknown recharge %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Recharge) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Recharge) UnmarshalText(b []byte) error {
	v, err := ParseRecharge(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Pool is one tracked resource.
//
// Invariant: 0 <= Used <= Max.
type Pool struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Max      int      `json:"max"`
	Used     int      `json:"used"`
	Recharge Recharge `json:"recharge"`
	// Unlimited pools never run out and never record use.
	Unlimited bool `json:"unlimited,omitempty"`
}

// Remaining returns Max - Used.
func (p Pool) Remaining() int { return p.Max - p.Used }

// Normalize clamps Max and Used into their valid ranges.
func (p Pool) Normalize() Pool {
	p.Max = max(p.Max, 0)
	p.Used = max(0, min(p.Used, p.Max))
	return p
}

// Use spends n uses of p. On failure p is returned unchanged together with
// an *InsufficientResourceError.
//
// Precondition: n >= 0; a negative n is treated as 0.
// Postcondition: on success Used' == Used + n <= Max.
func Use(p Pool, n int) (Pool, error) {
	p = p.Normalize()
	n = max(n, 0)
	if p.Unlimited {
		return p, nil
	}
	if p.Used+n > p.Max {
		return p, &InsufficientResourceError{Key: p.Key, Requested: n, Remaining: p.Remaining()}
	}
	p.Used += n
	return p, nil
}

// Recover restores n uses of p, never below zero used.
func Recover(p Pool, n int) Pool {
	p = p.Normalize()
	p.Used = max(0, p.Used-max(n, 0))
	return p
}

// RestKind is the kind of rest taken.
type RestKind int

const (
	RestShort RestKind = iota
	RestLong
)

// String returns "short" or "long".
func (k RestKind) String() string {
	if k == RestLong {
		return "long"
	}
	return "short"
}

// ParseRestKind converts "short" or "long" into a RestKind.
func ParseRestKind(s string) (RestKind, error) {
	switch s {
	case "short":
		return RestShort, nil
	case "long":
		return RestLong, nil
	default:
		return 0, fmt.Errorf("resource: unknown rest kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k RestKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RestKind) UnmarshalText(b []byte) error {
	v, err := ParseRestKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Resets reports whether a rest of kind k resets pools with trigger r.
// A long rest resets short-rest, long-rest and daily pools.
func (k RestKind) Resets(r Recharge) bool {
	switch r {
	case RechargeShortRest:
		return true
	case RechargeLongRest, RechargeDaily:
		return k == RestLong
	default:
		return false
	}
}

// ApplyRest returns a copy of pools with every pool reset whose recharge
// trigger is satisfied by kind.
//
// Postcondition: len(result) == len(pools); manual and never pools are unchanged.
func ApplyRest(pools []Pool, kind RestKind) []Pool {
	out := make([]Pool, len(pools))
	for i, p := range pools {
		p = p.Normalize()
		if kind.Resets(p.Recharge) {
			p.Used = 0
		}
		out[i] = p
	}
	return out
}

// Find returns the index of the pool with key, or -1.
func Find(pools []Pool, key string) int {
	for i, p := range pools {
		if p.Key == key {
			return i
		}
	}
	return -1
}
