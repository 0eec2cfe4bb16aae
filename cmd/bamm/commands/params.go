package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/bomeara/bamm/pkg/chain"
)

// ErrBadParamsRecord indicates a diversification parameter block that does
// not decode as four floats.
var ErrBadParamsRecord = errors.New("bad diversification parameter record")

const diversificationFieldCount = 4

// Mean rates for parameters of freshly proposed events.
const (
	newLambdaMean = 0.1
	newMuMean     = 0.05
)

// DiversificationParams is the per-event rate payload: a speciation rate
// with an exponential time shift, and an extinction rate likewise.
type DiversificationParams struct {
	LambdaInit  float64 `json:"lambda_init"`
	LambdaShift float64 `json:"lambda_shift"`
	MuInit      float64 `json:"mu_init"`
	MuShift     float64 `json:"mu_shift"`
}

// Clone returns an independent copy.
func (dp *DiversificationParams) Clone() chain.Params {
	cp := *dp

	return &cp
}

func defaultRootParams() *DiversificationParams {
	return &DiversificationParams{LambdaInit: newLambdaMean, MuInit: newMuMean}
}

// randomDiversification draws parameters for a freshly inserted event.
// Rates come from exponential distributions around the configured means;
// shifts start at zero.
func randomDiversification(rng *rand.Rand) chain.Params {
	return &DiversificationParams{
		LambdaInit: rng.ExpFloat64() * newLambdaMean,
		MuInit:     rng.ExpFloat64() * newMuMean,
	}
}

// parseDiversification decodes the parameter block of an event data record:
// lambdaInit lambdaShift muInit muShift.
func parseDiversification(fields []string) (chain.Params, error) {
	if len(fields) != diversificationFieldCount {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrBadParamsRecord, len(fields), diversificationFieldCount)
	}

	values := make([]float64, diversificationFieldCount)

	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q is not a number", ErrBadParamsRecord, f)
		}

		values[i] = v
	}

	return &DiversificationParams{
		LambdaInit:  values[0],
		LambdaShift: values[1],
		MuInit:      values[2],
		MuShift:     values[3],
	}, nil
}

func encodeDiversification(p chain.Params) ([]byte, error) {
	dp, ok := p.(*DiversificationParams)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected params type %T", ErrBadParamsRecord, p)
	}

	return json.Marshal(dp)
}

func decodeDiversification(data []byte) (chain.Params, error) {
	var dp DiversificationParams

	err := json.Unmarshal(data, &dp)
	if err != nil {
		return nil, fmt.Errorf("decode diversification params: %w", err)
	}

	return &dp, nil
}
