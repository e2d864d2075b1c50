package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fastjson"

	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/internal/runtime"
	"github.com/rzbill/logbook/pkg/log"
)

const (
	defaultTailWait = 10 * time.Second
	maxTailWait     = 60 * time.Second
	// maxIngestBytes bounds a single ingest request body.
	maxIngestBytes = 8 << 20
)

// LogsController serves queries, ingestion, tailing and maintenance of the
// log store.
type LogsController struct {
	rt       *runtime.Runtime
	logger   log.Logger
	defLimit int
	maxLimit int
	parsers  fastjson.ParserPool
}

// NewLogsController creates a logs controller. Query limits come from the
// runtime's HTTP config.
func NewLogsController(rt *runtime.Runtime, logger log.Logger) *LogsController {
	hc := rt.Config().HTTP
	return &LogsController{
		rt:       rt,
		logger:   logger.With(log.Component("http.logs")),
		defLimit: hc.DefaultQueryLimit,
		maxLimit: hc.MaxQueryLimit,
	}
}

// RegisterRoutes registers the log routes with the given mux.
func (c *LogsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/logs", c.handleLogs)
	mux.HandleFunc("/v1/logs/tail", c.handleTail)
	mux.HandleFunc("/v1/logs/stream", c.handleStreamSSE)
	mux.HandleFunc("/v1/logs/delete", c.handleDelete)
	mux.HandleFunc("/v1/logs/path", c.handlePath)
	mux.HandleFunc("/v1/logs/cleanup", c.handleCleanup)
	mux.HandleFunc("/v1/logs/level", c.handleLevel)
}

func (c *LogsController) handleLogs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c.handleQuery(w, r)
	case http.MethodPost:
		c.handleIngest(w, r)
	default:
		allowMethods(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleQuery returns stored events.
func (c *LogsController) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query(), c.defLimit, c.maxLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	evs, err := c.rt.Logger().GetLogs(r.Context(), q)
	if err != nil {
		c.fail(w, r, "query", err)
		return
	}
	writeJSON(w, newLogsResp(evs, q.AfterID))
}

// handleIngest accepts one event object or an array of them:
//
//	{"level": "warn" | 40, "message": "...", "tag": "..."}
//
// "msg" is accepted for "message". The whole request is rejected when any
// item is invalid.
func (c *LogsController) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if len(body) > maxIngestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Body too large")
		return
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	var items []*fastjson.Value
	if v.Type() == fastjson.TypeArray {
		items, _ = v.Array()
	} else {
		items = []*fastjson.Value{v}
	}

	type entry struct {
		level model.Level
		msg   string
		tag   string
	}
	entries := make([]entry, 0, len(items))
	for i, item := range items {
		if item.Type() != fastjson.TypeObject {
			writeError(w, http.StatusBadRequest, "item "+strconv.Itoa(i)+": expected object")
			return
		}
		level, err := ingestLevel(item.Get("level"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "item "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		msg := string(item.GetStringBytes("message"))
		if msg == "" {
			msg = string(item.GetStringBytes("msg"))
		}
		entries = append(entries, entry{level: level, msg: msg, tag: string(item.GetStringBytes("tag"))})
	}

	lb := c.rt.Logger()
	for _, e := range entries {
		lb.Write(e.level, e.msg, e.tag)
	}
	writeJSONStatus(w, http.StatusAccepted, ingestResp{Accepted: len(entries)})
}

func ingestLevel(v *fastjson.Value) (model.Level, error) {
	if v == nil {
		return model.LevelInfo, nil
	}
	switch v.Type() {
	case fastjson.TypeString:
		return model.ParseLevel(string(v.GetStringBytes()))
	case fastjson.TypeNumber:
		n, err := v.Int()
		if err != nil || n <= 0 {
			return 0, model.ErrInvalidLevel
		}
		return model.Level(n), nil
	default:
		return 0, model.ErrInvalidLevel
	}
}

// handleTail long-polls for events after after_id. It answers as soon as
// any exist, or with an empty page when wait_ms passes.
func (c *LogsController) handleTail(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	vals := r.URL.Query()
	q, err := parseQuery(vals, c.defLimit, c.maxLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	q.Order = model.OrderAsc
	wait := defaultTailWait
	if s := vals.Get("wait_ms"); s != "" {
		ms, err := strconv.Atoi(s)
		if err != nil || ms < 0 {
			writeError(w, http.StatusBadRequest, "Invalid wait_ms")
			return
		}
		wait = min(time.Duration(ms)*time.Millisecond, maxTailWait)
	}

	ctx := r.Context()
	deadline := time.Now().Add(wait)
	for {
		evs, err := c.rt.Logger().GetLogs(ctx, q)
		if err != nil {
			c.fail(w, r, "tail", err)
			return
		}
		remaining := time.Until(deadline)
		if len(evs) > 0 || remaining <= 0 {
			writeJSON(w, newLogsResp(evs, q.AfterID))
			return
		}
		if !c.rt.WaitForAppend(ctx, remaining) && ctx.Err() != nil {
			return
		}
	}
}

// handleStreamSSE streams events after after_id (or Last-Event-ID) until the
// client disconnects.
func (c *LogsController) handleStreamSSE(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	q, err := parseQuery(r.URL.Query(), c.defLimit, c.maxLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if id := r.Header.Get("Last-Event-ID"); id != "" && q.AfterID == 0 {
		if q.AfterID, err = parseUint(id); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	q.Order = model.OrderAsc

	ctx := r.Context()
	sink := newSSESink(w)
	w.WriteHeader(http.StatusOK)
	sink.Flush()
	for {
		evs, err := c.rt.Logger().GetLogs(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("stream query failed", log.Err(err))
			}
			return
		}
		for _, ev := range evs {
			if err := sink.Send(ev); err != nil {
				return
			}
			q.AfterID = ev.ID
		}
		if len(evs) == 0 {
			if err := sink.Ping(); err != nil {
				return
			}
		}
		sink.Flush()
		if len(evs) < q.Limit {
			c.rt.WaitForAppend(ctx, defaultTailWait)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// handleDelete removes events. All set bounds are ANDed.
func (c *LogsController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost, http.MethodDelete) {
		return
	}
	var req deleteReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	q := model.DeleteQuery{Start: req.Start, End: req.End, MaxID: req.MaxID}
	if err := c.rt.Logger().DeleteLogs(r.Context(), q); err != nil {
		c.fail(w, r, "delete", err)
		return
	}
	writeNoContent(w)
}

func (c *LogsController) handlePath(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	p, err := c.rt.Logger().DBFilePath(r.Context())
	if err != nil {
		c.fail(w, r, "path", err)
		return
	}
	writeJSON(w, map[string]string{"path": p})
}

func (c *LogsController) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req cleanupReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	opts := model.CleanUpOptions{Compress: req.Compress, Vacuum: req.Vacuum}
	if err := c.rt.Logger().CleanUp(r.Context(), opts); err != nil {
		c.fail(w, r, "cleanup", err)
		return
	}
	writeNoContent(w)
}

// handleLevel reads or changes the ingestion threshold.
func (c *LogsController) handleLevel(w http.ResponseWriter, r *http.Request) {
	lb := c.rt.Logger()
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPost:
		var req levelReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		level, err := model.ParseLevel(req.Level)
		if err == nil {
			err = lb.SetLogLevel(level)
		}
		if err != nil {
			writeStoreError(w, err)
			return
		}
		c.logger.Info("log level changed", log.Str("level", level.String()))
	default:
		allowMethods(w, r, http.MethodGet, http.MethodPut, http.MethodPost)
		return
	}
	level := lb.LogLevel()
	writeJSON(w, levelResp{Level: level.String(), Value: int(level)})
}

func (c *LogsController) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		c.logger.Error(op+" failed", log.Err(err), log.RequestID(RequestIDFrom(r.Context())))
	}
	writeStoreError(w, err)
}

// decodeOptional decodes a JSON body, treating an empty body as zero values.
func decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
