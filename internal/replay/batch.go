package replay

import "fmt"

// Span is an inclusive range of journal positions.
type Span struct {
	From int
	To   int
}

// SplitSpans splits positions [from, to] into batches of size batchSize.
func SplitSpans(from, to, batchSize int) ([]Span, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if from < 0 || to < from {
		return nil, fmt.Errorf("to position must be >= from position")
	}

	spans := make([]Span, 0, (to-from)/batchSize+1)
	for start := from; start <= to; start += batchSize {
		end := start + batchSize - 1
		if end > to {
			end = to
		}
		spans = append(spans, Span{From: start, To: end})
	}
	return spans, nil
}
