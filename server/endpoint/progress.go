package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/demandflow/pipeline"
)

// ProgressFunc returns the current run's id and counters, or false when no
// run is active yet.
type ProgressFunc func() (runID string, p pipeline.Progress, ok bool)

// Stage describes one end of the run: where records come from, how they are
// transformed, where they go.
type Stage struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Details string `json:"details,omitempty"`
}

// StagesFunc returns the stages of the current run.
type StagesFunc func() []Stage

// Progress returns a handler that reports the live counters, worker count,
// phase and stages of the current run. stages may be nil.
func Progress(fn ProgressFunc, stages StagesFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if fn == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no run"})
			return
		}
		runID, p, ok := fn()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no run"})
			return
		}
		body := gin.H{
			"run_id":   runID,
			"progress": p,
			"stages":   []Stage{},
		}
		if stages != nil {
			if st := stages(); st != nil {
				body["stages"] = st
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
