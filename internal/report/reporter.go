package report

import (
	"os"
	"runtime"
	"strconv"

	"github.com/getsentry/sentry-go"
)

// ConfigureScope stamps every event with the planner's runtime identity so
// events from several transitd deployments stay distinguishable.
func ConfigureScope(env, version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "transitd")
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

// ReportError reports the error to Sentry with the given severity level.
// If no level is provided, it defaults to sentry.LevelError.
func ReportError(err error, levels ...sentry.Level) {
	if err == nil {
		return
	}

	level := sentry.LevelError
	if len(levels) > 0 {
		level = levels[0]
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}

// ReportFeedError reports a feed download or ingestion failure tagged with
// the feed it came from, so events group per upstream feed. The extra map
// carries request context such as the URL and response status.
func ReportFeedError(err error, feedID int, extra map[string]interface{}) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("feed_id", strconv.Itoa(feedID))
		if extra != nil {
			scope.SetContext("feed", extra)
		}
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureException(err)
	})
}

// ReportConfigError reports a configuration loading failure tagged with the
// source the feed list was loaded from, a file path or a URL.
func ReportConfigError(err error, source string) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("config_source", source)
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureException(err)
	})
}
