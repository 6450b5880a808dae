package services

import (
	"context"
	"database/sql"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"golang.org/x/sync/errgroup"
)

// DashboardServiceInterface assembles landing-page summaries
type DashboardServiceInterface interface {
	GetDashboard(ctx context.Context, actor models.Actor) (*models.Dashboard, error)
	GetAdminStats(ctx context.Context, actor models.Actor) (*models.AdminStats, error)
}

// DashboardService fans out to the project, report and alert services
type DashboardService struct {
	db       *sql.DB
	cfg      *config.Config
	projects ProjectServiceInterface
	reports  ReportServiceInterface
	alerts   AlertServiceInterface
	logger   *observability.Logger
}

// NewDashboardServiceWithLogger creates a DashboardService
func NewDashboardServiceWithLogger(db *sql.DB, cfg *config.Config, projects ProjectServiceInterface, reports ReportServiceInterface,
	alerts AlertServiceInterface, logger *observability.Logger,
) *DashboardService {
	return &DashboardService{db: db, cfg: cfg, projects: projects, reports: reports, alerts: alerts, logger: logger}
}

// GetDashboard returns the actor's projects, most recent reports, upcoming
// alerts and pending count. The queries run concurrently.
func (s *DashboardService) GetDashboard(ctx context.Context, actor models.Actor) (result0 *models.Dashboard, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_dashboard", observability.AttributeUserID(actor.UserID))
	defer observability.FinishSpan(span, &err)

	recent := s.cfg.Reports.DashboardRecent
	filter := models.ReportFilter{Limit: recent}
	pendingQuery := `SELECT COUNT(*) FROM reports WHERE status = 'pending'`
	var pendingArgs []interface{}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
		pendingQuery += ` AND user_id = $1`
		pendingArgs = append(pendingArgs, actor.UserID)
	}

	d := &models.Dashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Projects, err = s.projects.ListProjects(gctx, actor)
		return err
	})
	g.Go(func() (err error) {
		d.RecentReports, err = s.reports.ListReports(gctx, actor, filter)
		return err
	})
	g.Go(func() (err error) {
		d.UpcomingAlerts, err = s.alerts.ListUpcomingAlerts(gctx, actor, recent)
		return err
	})
	g.Go(func() error {
		if err := s.db.QueryRowContext(gctx, pendingQuery, pendingArgs...).Scan(&d.PendingReviews); err != nil {
			return contextutils.WrapError(err, "failed to count pending reports")
		}
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// GetAdminStats counts users, projects, reports and pending reports concurrently. Administrators only.
func (s *DashboardService) GetAdminStats(ctx context.Context, actor models.Actor) (result0 *models.AdminStats, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_admin_stats", observability.AttributeUserID(actor.UserID))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can view statistics")
	}

	stats := &models.AdminStats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM users`, &stats.Users},
		{`SELECT COUNT(*) FROM projects`, &stats.Projects},
		{`SELECT COUNT(*) FROM reports`, &stats.Reports},
		{`SELECT COUNT(*) FROM reports WHERE status = 'pending'`, &stats.PendingReports},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			if err := s.db.QueryRowContext(gctx, c.query).Scan(c.dest); err != nil {
				return contextutils.WrapError(err, "failed to count rows")
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
