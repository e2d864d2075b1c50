package controllers

import "github.com/rzbill/logbook/internal/model"

// Common request/response types for HTTP controllers

// logsResp is returned by query and tail endpoints.
type logsResp struct {
	Events []model.LogEvent `json:"events"`
	// NextAfterID resumes a tail or export after this page.
	NextAfterID uint64 `json:"next_after_id"`
}

// deleteReq represents a request to delete events. An empty body deletes
// everything.
type deleteReq struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	MaxID uint64 `json:"max_id"`
}

// cleanupReq represents a maintenance request.
type cleanupReq struct {
	Compress bool `json:"compress"`
	Vacuum   bool `json:"vacuum"`
}

// levelReq sets the ingestion threshold.
type levelReq struct {
	Level string `json:"level"`
}

type levelResp struct {
	Level string `json:"level"`
	Value int    `json:"value"`
}

type ingestResp struct {
	Accepted int `json:"accepted"`
}

func newLogsResp(evs []model.LogEvent, after uint64) logsResp {
	if evs == nil {
		evs = []model.LogEvent{}
	}
	next := after
	for _, ev := range evs {
		if ev.ID > next {
			next = ev.ID
		}
	}
	return logsResp{Events: evs, NextAfterID: next}
}
