package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything gathered by g to a Pushgateway under job. CLI runs
// are too short-lived to be scraped.
func Push(url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
