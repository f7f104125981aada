package events

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

var (
	sampleKinds = []string{
		"System Maintenance",
		"Data Backup",
		"Security Scan",
		"Performance Monitoring",
		"User Training",
		"Software Update",
		"Network Maintenance",
		"Database Optimization",
		"Backup Verification",
		"System Health Check",
	}
	sampleTags = []string{"critical", "high", "medium", "low", "urgent", "routine", "scheduled", "emergency"}

	sampleDescriptions = []string{
		"Scheduled maintenance window for system updates and optimization.",
		"Automated backup process to ensure data integrity and recovery.",
		"Security vulnerability scan to identify potential threats.",
		"Performance monitoring and analysis of system metrics.",
		"User training session for new features and best practices.",
		"Software update deployment with minimal downtime.",
		"Network infrastructure maintenance and optimization.",
		"Database performance tuning and index optimization.",
		"Backup integrity verification and restoration testing.",
		"Comprehensive system health check and diagnostics.",
	}
	sampleSummaries = []string{
		"completed successfully",
		"finished with no errors",
		"identified and resolved issues",
		"metrics within acceptable ranges",
		"completed with positive feedback",
		"deployed without downtime",
	}
)

// Samples generates n realistic events with ids starting at firstID. Each
// event starts within 30 days of now and lasts between one and nine hours.
func Samples(rng *rand.Rand, n int, firstID int64, now time.Time) []Event {
	pick := func(values []string) string { return values[rng.IntN(len(values))] }

	out := make([]Event, 0, n)
	for i := range n {
		id := firstID + int64(i)
		kind := pick(sampleKinds)
		tag := pick(sampleTags)

		start := now.Add(time.Duration(rng.IntN(30*24*60)) * time.Minute).Truncate(time.Minute)
		duration := time.Duration(60+rng.IntN(8*60)) * time.Minute
		end := start.Add(duration)

		startStr := start.Format("2006-01-02T15:04:05")
		endStr := end.Format("2006-01-02T15:04:05")

		out = append(out, Event{
			ID:      id,
			Name:    fmt.Sprintf("%s #%d", kind, id),
			Summary: fmt.Sprintf("%s #%d: %s", kind, id, pick(sampleSummaries)),
			Status:  pick(Statuses),
			Tag:     tag,
			Time:    now.Format("2006-01-02T15:04:05"),
			Description: fmt.Sprintf("## %s\n\n%s\n\n**Event ID**: %d\n**Priority**: %s\n**Duration**: %dh %dm",
				kind, pick(sampleDescriptions), id, strings.ToUpper(tag),
				int(duration.Hours()), int(duration.Minutes())%60),
			EventStart: &startStr,
			EventEnd:   &endStr,
		})
	}
	return out
}
