package stats

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Shape is the declared result shape of a statistic. A statistic always
// yields the same shape for every record, including records with no relevant
// data at all (an empty counter, never a nil).
type Shape int

const (
	ShapeNumber Shape = iota
	ShapeCounter1
	ShapeCounter2
	ShapeCounter3
)

func (s Shape) String() string {
	switch s {
	case ShapeNumber:
		return "number"
	case ShapeCounter1:
		return "counter1"
	case ShapeCounter2:
		return "counter2"
	case ShapeCounter3:
		return "counter3"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// Counter1 maps a key to a count or sum.
type Counter1 map[string]decimal.Decimal

// Counter2 is a two-level counter, e.g. transaction type -> year -> count.
type Counter2 map[string]Counter1

// Counter3 is a three-level counter, e.g. type -> currency -> year -> sum.
type Counter3 map[string]Counter2

// Value is a statistic result of exactly one of the four shapes. The zero
// Value is the Number 0. Values are immutable once returned; Merge and Fold
// always allocate fresh maps.
type Value struct {
	shape Shape
	num   decimal.Decimal
	c1    Counter1
	c2    Counter2
	c3    Counter3
}

func Num(d decimal.Decimal) Value { return Value{shape: ShapeNumber, num: d} }

func NumInt(n int64) Value { return Num(decimal.NewFromInt(n)) }

func C1(c Counter1) Value {
	if c == nil {
		c = Counter1{}
	}
	return Value{shape: ShapeCounter1, c1: c}
}

func C2(c Counter2) Value {
	if c == nil {
		c = Counter2{}
	}
	return Value{shape: ShapeCounter2, c2: c}
}

func C3(c Counter3) Value {
	if c == nil {
		c = Counter3{}
	}
	return Value{shape: ShapeCounter3, c3: c}
}

// Identity returns the empty value for a shape: zero for numbers, an empty
// counter at the right depth otherwise. Fold over no inputs returns this.
func Identity(s Shape) Value {
	switch s {
	case ShapeCounter1:
		return C1(Counter1{})
	case ShapeCounter2:
		return C2(Counter2{})
	case ShapeCounter3:
		return C3(Counter3{})
	default:
		return Num(decimal.Zero)
	}
}

func (v Value) Shape() Shape { return v.shape }

// Number returns the scalar for a ShapeNumber value.
func (v Value) Number() decimal.Decimal { return v.num }

func (v Value) Counter1() Counter1 { return v.c1 }
func (v Value) Counter2() Counter2 { return v.c2 }
func (v Value) Counter3() Counter3 { return v.c3 }

// Merge combines two values of the same shape: numbers are summed, counters
// take the union of keys, summing values present on both sides. Merge is
// associative and commutative, so folding order and grouping never change
// the result. Neither input is mutated.
func Merge(a, b Value) (Value, error) {
	if a.shape != b.shape {
		return Value{}, fmt.Errorf("cannot merge %s with %s", a.shape, b.shape)
	}
	switch a.shape {
	case ShapeNumber:
		return Num(a.num.Add(b.num)), nil
	case ShapeCounter1:
		return C1(mergeCounter1(a.c1, b.c1)), nil
	case ShapeCounter2:
		return C2(mergeCounter2(a.c2, b.c2)), nil
	case ShapeCounter3:
		out := Counter3{}
		for k, v := range a.c3 {
			out[k] = mergeCounter2(v, nil)
		}
		for k, v := range b.c3 {
			out[k] = mergeCounter2(out[k], v)
		}
		return C3(out), nil
	}
	return Value{}, fmt.Errorf("unknown shape %s", a.shape)
}

func mergeCounter1(a, b Counter1) Counter1 {
	out := make(Counter1, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = out[k].Add(v)
	}
	return out
}

func mergeCounter2(a, b Counter2) Counter2 {
	out := make(Counter2, len(a)+len(b))
	for k, v := range a {
		out[k] = mergeCounter1(v, nil)
	}
	for k, v := range b {
		out[k] = mergeCounter1(out[k], v)
	}
	return out
}

// Fold reduces a sequence of same-shaped values. An empty sequence yields
// the shape's identity; a single element is returned as-is.
func Fold(s Shape, vs []Value) (Value, error) {
	acc := Identity(s)
	for _, v := range vs {
		merged, err := Merge(acc, v)
		if err != nil {
			return Value{}, err
		}
		acc = merged
	}
	return acc, nil
}

// MarshalJSON writes the bare underlying value so aggregates serialize to a
// plain nested key-value document.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.shape {
	case ShapeCounter1:
		return json.Marshal(v.c1)
	case ShapeCounter2:
		return json.Marshal(v.c2)
	case ShapeCounter3:
		return json.Marshal(v.c3)
	default:
		return json.Marshal(v.num)
	}
}
