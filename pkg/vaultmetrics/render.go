package vaultmetrics

import (
	"bytes"
	"fmt"

	"github.com/prometheus/common/expfmt"
)

// Render gathers the current state of every registered collector and
// encodes it in the standard Prometheus text exposition format. The
// METRICS wire operation sends the result back as its response payload;
// there is no HTTP endpoint to scrape here.
func (m *Metrics) Render() ([]byte, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("vaultmetrics: gather: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("vaultmetrics: encode: %w", err)
		}
	}
	return buf.Bytes(), nil
}
