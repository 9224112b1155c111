package store

import (
	"stockdash/internal/apiclient"
	"stockdash/internal/logger"
)

// LogHook logs successes at debug and failures at warn.
func LogHook(ev ActionEvent) {
	if ev.Err == nil {
		logger.Debugf("%s.%s ok in %s %v", ev.Store, ev.Action, ev.Duration, ev.Params)
		return
	}
	kind := "error"
	if ne, ok := apiclient.AsNetworkError(ev.Err); ok {
		kind = ne.Kind.String()
	}
	logger.Warnf("%s.%s failed (%s) in %s %v: %v", ev.Store, ev.Action, kind, ev.Duration, ev.Params, ev.Err)
}
