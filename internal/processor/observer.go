package processor

import "time"

// Observer receives lifecycle notifications from a TextProcessor.
// All methods are called from the goroutine running ProcessFiles, one batch
// at a time per call, and must not block for long.
type Observer interface {
	BatchStarted(batchID string, total int)
	FileSucceeded(batchID, path string, result FileProcessingResult, elapsed time.Duration)
	FileFailed(batchID, path string, err error)
	BatchFinished(summary BatchSummary)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) BatchStarted(string, int)                                          {}
func (NopObserver) FileSucceeded(string, string, FileProcessingResult, time.Duration) {}
func (NopObserver) FileFailed(string, string, error)                                  {}
func (NopObserver) BatchFinished(BatchSummary)                                        {}

// Observers forwards every notification to each of its members in order.
type Observers []Observer

func (o Observers) BatchStarted(batchID string, total int) {
	for _, obs := range o {
		obs.BatchStarted(batchID, total)
	}
}

func (o Observers) FileSucceeded(batchID, path string, result FileProcessingResult, elapsed time.Duration) {
	for _, obs := range o {
		obs.FileSucceeded(batchID, path, result, elapsed)
	}
}

func (o Observers) FileFailed(batchID, path string, err error) {
	for _, obs := range o {
		obs.FileFailed(batchID, path, err)
	}
}

func (o Observers) BatchFinished(summary BatchSummary) {
	for _, obs := range o {
		obs.BatchFinished(summary)
	}
}
