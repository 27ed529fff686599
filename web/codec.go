package web

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Conceptual-Machines/dawscript-go/handle"
	"github.com/Conceptual-Machines/dawscript-go/host"
)

// HandlePrefix marks strings on the wire that stand for host handles.
const HandlePrefix = "handle_"

// Codec converts between facade values and JSON-safe wire values. Handles
// travel as HandlePrefix + StableID and infinities as ±math.MaxFloat64,
// since JSON has no representation for either.
type Codec struct {
	facade *host.Facade
}

func NewCodec(f *host.Facade) *Codec {
	return &Codec{facade: f}
}

// Encode returns v with every handle replaced by its wire id.
func (c *Codec) Encode(v any) (any, error) {
	switch v := v.(type) {
	case nil, bool, string, int, int64:
		return v, nil
	case float64:
		if math.IsNaN(v) {
			return nil, nil
		}
		return clampInf(v), nil
	case host.TrackType:
		return int(v), nil
	case []float64:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = clampInf(x)
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			enc, err := c.Encode(x)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	}

	id, err := c.facade.StableID(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return HandlePrefix + id, nil
}

// Decode unmarshals one request argument, resolving handle ids back to the
// handles they were issued for.
func (c *Codec) Decode(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode argument: %w", err)
	}
	return c.resolve(v)
}

func (c *Codec) resolve(v any) (any, error) {
	switch v := v.(type) {
	case string:
		if id, ok := strings.CutPrefix(v, HandlePrefix); ok && handle.IsID(id) {
			return c.facade.Resolve(id)
		}
	case float64:
		if v == math.MaxFloat64 {
			return math.Inf(1), nil
		}
		if v == -math.MaxFloat64 {
			return math.Inf(-1), nil
		}
	case []any:
		for i, x := range v {
			r, err := c.resolve(x)
			if err != nil {
				return nil, err
			}
			v[i] = r
		}
	}
	return v, nil
}

func clampInf(x float64) float64 {
	switch {
	case math.IsInf(x, 1):
		return math.MaxFloat64
	case math.IsInf(x, -1):
		return -math.MaxFloat64
	}
	return x
}
