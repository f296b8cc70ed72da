package proposal

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/freightline/comms/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// OpsNotifier receives operator-facing summaries. Implemented by the Slack
// notifier in internal/ops; a nil notifier means log-only digests.
type OpsNotifier interface {
	Notify(ctx context.Context, title, body string) error
}

// DigestReport holds proposal activity counts for one reporting period,
// keyed by the status the proposals created in that period hold now.
type DigestReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	ByStatus    map[string]int64
}

// total returns the number of proposals covered by the report.
func (r *DigestReport) total() int64 {
	var n int64
	for _, c := range r.ByStatus {
		n += c
	}
	return n
}

// BuildDigest counts proposals created between since and now, grouped by
// current status. Returns nil when there was no activity.
func BuildDigest(db *gorm.DB, since, now time.Time) (*DigestReport, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.Model(&models.Proposal{}).
		Select("status, count(*) as count").
		Where("created_at >= ? AND created_at < ?", since, now).
		Group("status").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("proposal: digest: %w", err)
	}

	report := &DigestReport{PeriodStart: since, PeriodEnd: now, ByStatus: make(map[string]int64)}
	for _, row := range rows {
		report.ByStatus[row.Status] = row.Count
	}
	if report.total() == 0 {
		return nil, nil
	}
	return report, nil
}

// FormatDigest renders a report as a chat-friendly summary.
func FormatDigest(r *DigestReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Proposals created %s – %s: %d total\n",
		r.PeriodStart.Format("Jan 2 15:04"), r.PeriodEnd.Format("Jan 2 15:04"), r.total())
	for _, status := range []string{StatusPending, StatusAccepted, StatusDeclined, StatusExpired, StatusCancelled} {
		if c := r.ByStatus[status]; c > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", status, c)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RunDigest runs the digest loop on the given 5-field cron schedule until
// ctx is cancelled. Each fire summarizes the last 24 hours; quiet periods
// are suppressed. Failures are logged and the loop keeps going.
func RunDigest(ctx context.Context, db *gorm.DB, schedule string, notifier OpsNotifier) error {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("proposal: digest schedule %q: %w", schedule, err)
	}
	log.Printf("proposal: digest scheduled (%s)", schedule)

	for {
		next := sched.Next(time.Now())
		select {
		case <-ctx.Done():
			log.Printf("proposal: digest stopped")
			return nil
		case <-time.After(time.Until(next)):
		}

		now := time.Now()
		report, err := BuildDigest(db, now.Add(-24*time.Hour), now)
		if err != nil {
			log.Printf("proposal: digest: %v", err)
			continue
		}
		if report == nil {
			continue
		}

		body := FormatDigest(report)
		log.Printf("proposal: digest:\n%s", body)
		if notifier != nil {
			if err := notifier.Notify(ctx, "Daily proposal digest", body); err != nil {
				log.Printf("proposal: digest notify: %v", err)
			}
		}
	}
}
