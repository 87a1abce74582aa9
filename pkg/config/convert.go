package config

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
)

// AsBool parses item's value as a bool, defaulting to false on a missing or
// malformed value. Mirrors common.EnvToBool's "absent/unparseable means
// off" semantics for a ConfigItem rather than a raw string.
func AsBool(ctx context.Context, item common.ConfigItem) bool {
	v, err := strconv.ParseBool(item.Value())
	if err != nil {
		return false
	}
	return v
}

// AsInt parses item's value as an int, logging and returning def on failure.
func AsInt(ctx context.Context, item common.ConfigItem, def int) int {
	v, err := strconv.Atoi(item.Value())
	if err != nil {
		slog.WarnContext(ctx, "config value is not an int, using default", "key", item.Key(), "default", def, common.ErrAttr(err))
		return def
	}
	return v
}

// AsSeconds parses item's value as a count of seconds and returns it as a
// time.Duration, logging and returning def on failure.
func AsSeconds(ctx context.Context, item common.ConfigItem, def time.Duration) time.Duration {
	v, err := strconv.Atoi(item.Value())
	if err != nil {
		slog.WarnContext(ctx, "config value is not a duration in seconds, using default", "key", item.Key(), "default", def, common.ErrAttr(err))
		return def
	}
	return time.Duration(v) * time.Second
}
