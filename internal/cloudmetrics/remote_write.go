package cloudmetrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const maxSeriesPerWrite = 500

// RemoteWritePusher sends counters and gauges to a Prometheus
// remote_write endpoint, split into requests of at most
// maxSeriesPerWrite series.
type RemoteWritePusher struct {
	endpoint   string
	authToken  string
	external   map[string]string
	batchSize  int
	httpClient *http.Client
	now        func() time.Time
}

func NewRemoteWritePusher(endpoint, authToken string, external map[string]string) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:   endpoint,
		authToken:  strings.TrimSpace(authToken),
		external:   external,
		batchSize:  maxSeriesPerWrite,
		httpClient: &http.Client{Timeout: defaultPushTimeout},
		now:        time.Now,
	}
}

func (p *RemoteWritePusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}

	families, err := registry.Gather()
	if err != nil {
		return err
	}
	series := buildRemoteWriteSeries(families, p.external, p.now().UnixMilli())

	for start := 0; start < len(series); start += p.batchSize {
		end := min(start+p.batchSize, len(series))
		if err := p.write(ctx, series[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *RemoteWritePusher) write(ctx context.Context, series []prompb.TimeSeries) error {
	payload, err := proto.Marshal(protoadapt.MessageV2Of(&prompb.WriteRequest{Timeseries: series}))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// buildRemoteWriteSeries flattens counters and gauges into one sample per
// series. Series labels win over external labels of the same name.
func buildRemoteWriteSeries(families []*dto.MetricFamily, external map[string]string, timestampMs int64) []prompb.TimeSeries {
	var series []prompb.TimeSeries
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			value, ok := sampleValue(family.GetType(), metric)
			if !ok {
				continue
			}

			seen := make(map[string]struct{}, len(metric.GetLabel())+1)
			labels := []prompb.Label{{Name: "__name__", Value: family.GetName()}}
			for _, label := range metric.GetLabel() {
				seen[label.GetName()] = struct{}{}
				labels = append(labels, prompb.Label{Name: label.GetName(), Value: label.GetValue()})
			}
			for name, value := range external {
				if _, dup := seen[name]; dup || value == "" {
					continue
				}
				labels = append(labels, prompb.Label{Name: name, Value: value})
			}
			slices.SortFunc(labels, func(a, b prompb.Label) int {
				return strings.Compare(a.Name, b.Name)
			})

			series = append(series, prompb.TimeSeries{
				Labels:  labels,
				Samples: []prompb.Sample{{Value: value, Timestamp: timestampMs}},
			})
		}
	}
	return series
}

func sampleValue(metricType dto.MetricType, metric *dto.Metric) (float64, bool) {
	if metric == nil {
		return 0, false
	}
	switch metricType {
	case dto.MetricType_COUNTER:
		if c := metric.GetCounter(); c != nil {
			return c.GetValue(), true
		}
	case dto.MetricType_GAUGE:
		if g := metric.GetGauge(); g != nil {
			return g.GetValue(), true
		}
	}
	return 0, false
}
