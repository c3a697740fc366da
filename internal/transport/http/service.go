package http

import (
	"context"

	"abpulse/internal/services"
	"abpulse/pkg/contracts/domain"
)

// DashboardReader is the read side of the dashboard service used by the
// page, chart, data and export handlers
type DashboardReader interface {
	Summary(ctx context.Context, f domain.Filter) (domain.Summary, error)
	TimeSeries(ctx context.Context, f domain.Filter, b domain.Bucket) (domain.Series, error)
	Insights(ctx context.Context, f domain.Filter) (domain.Insights, error)
	Records(ctx context.Context, f domain.Filter, limit int) ([]domain.CampaignRecord, error)
	Info(ctx context.Context) (domain.DatasetInfo, error)
	Dashboard(ctx context.Context, f domain.Filter, b domain.Bucket) (*services.DashboardView, error)
}

var _ DashboardReader = (*services.DashboardService)(nil)
