package pid

import (
	"fmt"

	"github.com/fpgakit/pidhost/internal/bus"
	"github.com/fpgakit/pidhost/internal/response"
)

// SnapshotGains captures the gain registers as one coherent snapshot
// for the analytic model. On transports that support batch reads the
// three registers are read in a single atomic transaction; otherwise
// they are read back to back, which can observe two different update
// instants if something rewrites the gains concurrently.
func (c *Controller) SnapshotGains() (response.Gains, error) {
	addrs := []uint32{AddrP, AddrI, AddrD}

	var words []int64
	var err error
	if br, ok := c.bus.(bus.BatchReader); ok {
		words, err = br.ReadBatch(addrs)
		if err != nil {
			return response.Gains{}, fmt.Errorf("snapshot gains: %w", err)
		}
	} else {
		words = make([]int64, len(addrs))
		for i, a := range addrs {
			words[i], err = c.bus.Read(a)
			if err != nil {
				return response.Gains{}, fmt.Errorf("snapshot gains (0x%X): %w", a, err)
			}
		}
	}

	return response.Gains{
		P: c.p.Codec.Decode(words[0]),
		I: c.i.Codec.Decode(words[1]),
		D: c.d.Codec.Decode(words[2]),
	}, nil
}

// Model snapshots the controller and returns the analytic model for
// it. The returned value is pure; it holds no bus reference.
func (c *Controller) Model(extraDelay float64) (response.Model, error) {
	gains, err := c.SnapshotGains()
	if err != nil {
		return response.Model{}, err
	}
	return response.Model{
		Gains:               gains,
		Filter:              c.inputFilter,
		FrequencyCorrection: c.correctionFactor(),
		ExtraDelay:          extraDelay,
	}, nil
}

// TransferFunction predicts the open-loop complex response of the
// module as currently configured, at the given frequencies.
// extraDelay is external analog delay in seconds. A nonzero
// derivative gain in hardware fails with ErrDerivativeNotModeled
// rather than being silently left out of the result.
func (c *Controller) TransferFunction(frequencies []float64, extraDelay float64) ([]response.Point, error) {
	m, err := c.Model(extraDelay)
	if err != nil {
		return nil, err
	}
	return m.TransferFunction(frequencies)
}
