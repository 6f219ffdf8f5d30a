package pipeline

import (
	"log"
	"sort"
	"sync"

	"datalake/internal/model"
)

// warnings aggregates record errors: every error is counted per stage but
// only the first limit messages are kept for the summary.
type warnings struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	byStage map[string]int
}

func newWarnings(limit int) *warnings {
	return &warnings{limit: limit, byStage: make(map[string]int)}
}

func (w *warnings) add(e *model.RecordError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.byStage[e.Stage]++
	if w.count < w.limit {
		w.first = append(w.first, e.Error())
	}
	w.count++
}

func (w *warnings) reporter() model.Reporter { return w.add }

func (w *warnings) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// logSummary prints the totals per stage and the first messages.
func (w *warnings) logSummary(pipeline string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		return
	}
	stages := make([]string, 0, len(w.byStage))
	for s := range w.byStage {
		stages = append(stages, s)
	}
	sort.Strings(stages)

	log.Printf("%s: record errors: %d (showing first %d)", pipeline, w.count, len(w.first))
	for _, s := range stages {
		log.Printf("  stage=%s count=%d", s, w.byStage[s])
	}
	for i, msg := range w.first {
		log.Printf("  #%03d: %s", i+1, msg)
	}
}
