// Package backend defines the boundary between the enhancement engine and an
// inference runtime. A Backend holds one loaded network on one delegate.
package backend

import (
	"errors"
	"fmt"

	"go_enhance/tensor"
)

// Delegate is the execution target of a backend.
type Delegate int

const (
	CPU Delegate = iota
	Accelerated
)

func (d Delegate) String() string {
	switch d {
	case CPU:
		return "cpu"
	case Accelerated:
		return "accelerated"
	default:
		return fmt.Sprintf("delegate(%d)", int(d))
	}
}

// Precision names the artifact variant a delegate loads.
func (d Delegate) Precision() string {
	if d == Accelerated {
		return "fp16"
	}
	return "fp32"
}

// Model identifies one of the two networks.
type Model string

const (
	// ZeroDCE is the low-light enhancement network.
	ZeroDCE Model = "zerodce"
	// Restormer is the restoration network.
	Restormer Model = "restormer"
)

// Models lists every network in pipeline order.
var Models = []Model{Restormer, ZeroDCE}

// Status is a backend result code. Zero means success.
type Status int

const (
	StatusOK Status = 0

	StatusLoadFailed    Status = -1
	StatusBadInput      Status = -2
	StatusExtractFailed Status = -3
	StatusDeviceLost    Status = -4
)

// DeviceLost reports whether the status means the delegate itself is gone.
// Repeating the call on the same delegate cannot succeed.
func (s Status) DeviceLost() bool { return s == StatusDeviceLost }

// Backend runs one network.
type Backend interface {
	// LoadParams reads the network description.
	LoadParams(path string) Status

	// LoadWeights reads the network weights. Params must be loaded first.
	LoadWeights(path string) Status

	// Forward runs inference. The output has the same shape as in.
	Forward(in *tensor.Planar) (*tensor.Planar, Status)

	Close() error
}

// Factory creates backends and reports delegate availability.
type Factory interface {
	New(model Model, delegate Delegate) (Backend, error)
	AcceleratorAvailable() bool
}

// ErrUnavailable is returned by factories asked for a delegate they cannot provide.
var ErrUnavailable = errors.New("backend: delegate unavailable")
