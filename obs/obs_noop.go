//go:build nometrics

package obs

import (
	"context"
	"time"
)

func ObserveRequest(string, int, time.Duration, string) {}

func ObserveInference(string, string, time.Duration) {}

func ObserveRanking(bool, int, int) {}

func RecordCache(bool) {}

func RecordStoreWrite(string) {}

func SetModelLoaded(string, bool) {}

func InitTracer(string, float64) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
