package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/pool"
	"github.com/roach88/slotreason/internal/store"
	"github.com/roach88/slotreason/internal/suggest"
)

const poolKey = "pool"

// ReasonRequest is the body of POST /v1/pools/:name/reason.
type ReasonRequest struct {
	// Session restores and saves the working memory under this id.
	Session string `json:"session,omitempty"`

	// Retract removes every slot with the listed names first.
	Retract []string `json:"retract,omitempty"`

	// Slots and Facts are each a name-to-value object or a list of
	// [name, value] pairs.
	Slots json.RawMessage `json:"slots,omitempty"`
	Facts json.RawMessage `json:"facts,omitempty"`

	// Limit is the cycle budget; 0 uses the engine's configured limit.
	Limit int `json:"limit,omitempty"`
}

// ReasonResponse is the reply to a successful reason request.
type ReasonResponse struct {
	Engine  string      `json:"engine"`
	Session string      `json:"session,omitempty"`
	Changes ir.IRObject `json:"changes"`
	Fires   int         `json:"fires"`
	Facts   int         `json:"facts"`
}

// SuggestRequest is the body of POST /v1/pools/:name/suggest.
type SuggestRequest struct {
	User    string      `json:"user" binding:"required"`
	Context ir.IRObject `json:"context"`
}

// SuggestResponse lists suggestions, highest score first.
type SuggestResponse struct {
	User        string               `json:"user"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
	Timing      suggest.Timing       `json:"timing"`
}

func (s *Server) listPools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pools": s.registry.Names()})
}

// resolvePool stores the pool named in the path or answers 404.
func (s *Server) resolvePool(c *gin.Context) {
	name := c.Param("name")
	p, ok := s.registry.Get(name)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown pool: " + name})
		return
	}
	c.Set(poolKey, p)
	c.Next()
}

func poolOf(c *gin.Context) *pool.Pool {
	return c.MustGet(poolKey).(*pool.Pool)
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, poolOf(c).Stats())
}

func (s *Server) reason(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be non-negative"})
		return
	}

	slots, err := decodeInput(req.Slots)
	if err != nil {
		s.fail(c, err)
		return
	}
	facts, err := decodeInput(req.Facts)
	if err != nil {
		s.fail(c, err)
		return
	}

	p := poolOf(c)
	e, release, err := s.checkout(c.Request.Context(), p, req.Session)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer release()

	initial := e.Slots()
	if err := applyRequest(e, req.Retract, slots, facts); err != nil {
		s.fail(c, err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = e.ReasonLimit()
	}
	if err := e.Reason(c.Request.Context(), limit); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ReasonResponse{
		Engine:  e.ID(),
		Session: req.Session,
		Changes: ir.IRObject(e.CollectResultingSlots(initial)),
		Fires:   e.NumFires(),
		Facts:   e.NumFacts(),
	})
}

// decodeInput parses a slots or facts field. An absent or null field
// yields a nil Input.
func decodeInput(raw json.RawMessage) (engine.Input, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	v, err := ir.UnmarshalIRValue(raw)
	if err != nil {
		return nil, err
	}
	return engine.ParseInput(v)
}

func applyRequest(e *engine.Engine, retract []string, slots, facts engine.Input) error {
	for _, name := range retract {
		if _, err := e.RetractSlotsByName(name); err != nil {
			return err
		}
	}
	if slots != nil {
		if err := e.SetSlots(slots); err != nil {
			return err
		}
	}
	if facts != nil {
		if err := e.SetFacts(facts); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) facts(c *gin.Context) {
	p := poolOf(c)
	e, release, err := s.checkout(c.Request.Context(), p, c.Query("session"))
	if err != nil {
		s.fail(c, err)
		return
	}
	defer release()

	values := ir.IRArray(e.CollectFactValues(c.Param("template")))
	if values == nil {
		values = ir.IRArray{}
	}
	c.JSON(http.StatusOK, gin.H{
		"template": c.Param("template"),
		"values":   values,
	})
}

func (s *Server) clearSession(c *gin.Context) {
	if err := poolOf(c).ClearState(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) suggest(c *gin.Context) {
	name := c.Param("name")
	sg, ok := s.suggesters[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pool has no suggestions: " + name})
		return
	}

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Context == nil {
		req.Context = ir.IRObject{}
	}

	doc, err := json.Marshal(ir.IRObject{req.User: req.Context})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	adapter, err := suggest.NewJSONAdapter(bytes.NewReader(doc), sg.Properties())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	suggestions, err := sg.Suggest(c.Request.Context(), req.User, adapter)
	if err != nil {
		s.fail(c, err)
		return
	}
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	c.JSON(http.StatusOK, SuggestResponse{
		User:        req.User,
		Suggestions: suggestions,
		Timing:      sg.Timing(),
	})
}

// checkout acquires an engine, restoring the session's working memory when
// session is set. The returned release saves the session and gives the
// engine back; it runs even if the client went away.
func (s *Server) checkout(ctx context.Context, p *pool.Pool, session string) (*engine.Engine, func(), error) {
	if session == "" {
		e, err := p.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return e, func() {
			if err := p.Release(e); err != nil {
				s.logger.Error("release engine", "pool", p.Name(), "error", err)
			}
		}, nil
	}

	e, err := p.AcquireState(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	return e, func() {
		if err := p.ReleaseState(context.WithoutCancel(ctx), e, session); err != nil {
			s.logger.Error("release session", "pool", p.Name(), "session", session, "error", err)
		}
	}, nil
}

// fail writes err with the status it maps to.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}
	if code := engine.CodeOf(err); code != "" {
		body["code"] = string(code)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, pool.ErrNoStateStore), errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, pool.ErrPoolClosed),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case engine.CodeOf(err) != "":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
