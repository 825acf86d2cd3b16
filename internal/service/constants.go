package service

import "time"

const (
	// DefaultWorkers processes activities sequentially
	DefaultWorkers = 1

	// Weeks shown by the weekly summary
	WeeklySummaryLimit = 12

	// Cache key prefixes for the query service
	cacheKeyMetrics   = "metrics:"
	cacheKeyLatestRun = "run:latest"
	cacheKeyWeekly    = "weekly:"

	// Warning added when a stored weather snapshot cannot be decoded
	WarnWeatherUnreadable = "weather snapshot unreadable; ignored"

	SecondsPerMinute = 60

	// ReportFlushTimeout bounds how long the CLI waits for error reports
	ReportFlushTimeout = 2 * time.Second
)
