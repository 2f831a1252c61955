package types

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

type TimeUnitKind string

const (
	Era          TimeUnitKind = "era"
	Round        TimeUnitKind = "round"
	SlashingSpan TimeUnitKind = "slashing_span"
	Kblock       TimeUnitKind = "kblock"
	Hour         TimeUnitKind = "hour"
)

func (k TimeUnitKind) String() string {
	return string(k)
}

func (k TimeUnitKind) Validate() error {
	switch k {
	case Era, Round, SlashingSpan, Kblock, Hour:
		return nil
	default:
		return errorsmod.Wrapf(ErrInvalidTimeUnit, "unknown kind %q", string(k))
	}
}

// TimeUnit is a chain relative staking epoch. Ordering is only defined
// between units of the same kind.
type TimeUnit struct {
	Kind  TimeUnitKind `json:"kind" bson:"kind"`
	Value uint32       `json:"value" bson:"value"`
}

func NewTimeUnit(kind TimeUnitKind, value uint32) TimeUnit {
	return TimeUnit{Kind: kind, Value: value}
}

func (t TimeUnit) IsZero() bool {
	return t.Kind == ""
}

// Compare returns -1, 0 or 1. Units of different kinds never compare.
func (t TimeUnit) Compare(other TimeUnit) (int, error) {
	if t.Kind != other.Kind {
		return 0, errorsmod.Wrapf(ErrMixedTimeUnit, "%s vs %s", t, other)
	}
	switch {
	case t.Value < other.Value:
		return -1, nil
	case t.Value > other.Value:
		return 1, nil
	default:
		return 0, nil
	}
}

// ReachedBy reports whether now >= t.
func (t TimeUnit) ReachedBy(now TimeUnit) (bool, error) {
	c, err := t.Compare(now)
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}

// Add returns t advanced by delta. Both units must share a kind.
func (t TimeUnit) Add(delta TimeUnit) (TimeUnit, error) {
	if t.Kind != delta.Kind {
		return TimeUnit{}, errorsmod.Wrapf(ErrMixedTimeUnit, "%s + %s", t, delta)
	}
	if uint64(t.Value)+uint64(delta.Value) > math.MaxUint32 {
		return TimeUnit{}, errorsmod.Wrapf(ErrOverflow, "%s + %s", t, delta)
	}
	return TimeUnit{Kind: t.Kind, Value: t.Value + delta.Value}, nil
}

// Next returns the successor unit.
func (t TimeUnit) Next() (TimeUnit, error) {
	return t.Add(TimeUnit{Kind: t.Kind, Value: 1})
}

func (t TimeUnit) String() string {
	if t.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s(%d)", t.Kind, t.Value)
}

func (t TimeUnit) Validate() error {
	return t.Kind.Validate()
}

var timeUnitRegex = regexp.MustCompile(`^([a-z_]+)\((\d+)\)$`)

// ParseTimeUnit parses the String form, e.g. "era(5)".
func ParseTimeUnit(s string) (TimeUnit, error) {
	m := timeUnitRegex.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return TimeUnit{}, errorsmod.Wrapf(ErrInvalidTimeUnit, "cannot parse %q", s)
	}
	v, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return TimeUnit{}, errorsmod.Wrapf(ErrInvalidTimeUnit, "cannot parse %q: %v", s, err)
	}
	t := TimeUnit{Kind: TimeUnitKind(m[1]), Value: uint32(v)}
	if err := t.Validate(); err != nil {
		return TimeUnit{}, err
	}
	return t, nil
}
