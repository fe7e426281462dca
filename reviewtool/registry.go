package reviewtool

import (
	"errors"

	"github.com/flexigpt/llmtools-go"

	"github.com/flexigpt/skillchain-go/spec"
)

// NewRegistry creates an llmtools-go Registry and registers ONLY the wallet and
// reviewer tools into it.
func NewRegistry(rt spec.Runtime, opts ...llmtools.RegistryOption) (*llmtools.Registry, error) {
	if rt == nil {
		return nil, errors.New("nil runtime")
	}
	r, err := llmtools.NewRegistry(opts...)
	if err != nil {
		return nil, err
	}
	if err := Register(r, rt); err != nil {
		return nil, err
	}
	return r, nil
}
