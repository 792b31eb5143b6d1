package settings

import (
	"time"

	"github.com/ordishs/gocore"
)

func getString(key, defaultValue string) string {
	value, found := gocore.Config().Get(key)
	if !found {
		return defaultValue
	}

	return value
}

func getInt(key string, defaultValue int) int {
	value, found := gocore.Config().GetInt(key)
	if !found {
		return defaultValue
	}

	return value
}

func getFloat64(key string, defaultValue float64) float64 {
	value, found := gocore.Config().GetFloat64(key)
	if !found {
		return defaultValue
	}

	return value
}

func getBool(key string, defaultValue bool) bool {
	return gocore.Config().GetBool(key, defaultValue)
}

// getOptionalBool returns nil when the key is not configured at all.
func getOptionalBool(key string) *bool {
	if _, found := gocore.Config().Get(key); !found {
		return nil
	}

	value := gocore.Config().GetBool(key, false)

	return &value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err, _ := gocore.Config().GetDuration(key, defaultValue)
	if err != nil {
		return defaultValue
	}

	return value
}
