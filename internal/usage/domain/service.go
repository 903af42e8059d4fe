package domain

import (
	"context"
	"errors"
	"time"

	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
)

//go:generate mockgen -destination=mock/samples_provider.go -package=mock github.com/smallbiznis/meterbill/internal/usage/domain SamplesProvider

// SamplesProvider returns the usage samples recorded for a unit within
// [start, end]. No usage yields an empty slice, not an error.
type SamplesProvider interface {
	ListSamples(ctx context.Context, tenantID, unitName string, start, end time.Time) ([]UsageSample, error)
}

type ResolveRequest struct {
	TenantID string
	UnitName string
	Mode     pricingplandomain.AggregateMode
	Start    time.Time
	End      time.Time
}

type UpdateMethod string

const (
	UpdateMethodAdd    UpdateMethod = "add"
	UpdateMethodSub    UpdateMethod = "sub"
	UpdateMethodDirect UpdateMethod = "direct"
)

type UpdateCountRequest struct {
	TenantID  string       `json:"tenant_id"`
	UnitName  string       `json:"metering_unit_name"`
	Timestamp time.Time    `json:"timestamp"`
	Method    UpdateMethod `json:"method"`
	Count     int64        `json:"count"`
}

type CountResponse struct {
	TenantID  string    `json:"tenant_id"`
	UnitName  string    `json:"metering_unit_name"`
	Timestamp int64     `json:"timestamp"`
	Count     int64     `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Service interface {
	UpdateCount(ctx context.Context, req UpdateCountRequest) (*CountResponse, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidUnitName  = errors.New("invalid_metering_unit_name")
	ErrInvalidTimestamp = errors.New("invalid_timestamp")
	ErrInvalidMethod    = errors.New("invalid_method")
	ErrInvalidValue     = errors.New("invalid_value")
	ErrCountLocked      = errors.New("metering_count_locked")
)
