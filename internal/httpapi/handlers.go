package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"call-ledger/internal/access"
	"call-ledger/internal/audit"
	"call-ledger/internal/ledger"
	"call-ledger/internal/provider"
	"call-ledger/internal/reporting"
	"call-ledger/internal/users"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *access.Manager
	Ledger    *ledger.Service
	Users     *users.Service
	Reporting *reporting.Service
	Audit     *audit.Service
}

// callView decorates a ledger record with the human-readable ended reason for
// API consumers.
type callView struct {
	ledger.CallRecord
	EndedReasonDetail string `json:"ended_reason_detail,omitempty"`
}

func viewOf(rec ledger.CallRecord) callView {
	v := callView{CallRecord: rec}
	if rec.EndedReason != "" {
		v.EndedReasonDetail = provider.EndedReasonMessage(rec.EndedReason)
	}
	return v
}

func viewsOf(recs []ledger.CallRecord) []callView {
	out := make([]callView, 0, len(recs))
	for _, r := range recs {
		out = append(out, viewOf(r))
	}
	return out
}

// writeLedgerError maps ledger sentinels to HTTP statuses.
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case errors.Is(err, ledger.ErrDuplicateCallID):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call_id already logged"})
	case errors.Is(err, ledger.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	case errors.Is(err, ledger.ErrActiveCallLimit):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "active call limit reached"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func identity(c *gin.Context) (access.Identity, bool) {
	id, err := access.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return access.Identity{}, false
	}
	return id, true
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: credential validation is owned by the assistant platform; this
// endpoint exchanges an already-trusted principal for tokens and must stay
// behind the deployment's ingress auth.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Role == "" {
		req.Role = access.RoleUser
	}
	if req.Role != access.RoleService && req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

// CreateCall logs a new outbound call. Reserved for the service role: the
// orchestrator records calls on behalf of users.
func (h Handlers) CreateCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req ledger.CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rec, err := h.Ledger.CreateCall(c.Request.Context(), req)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	if h.Audit != nil {
		_ = h.Audit.LogCallCreated(c.Request.Context(), id.UserID, id.Role, c.ClientIP(), rec.CallID, rec.UserID)
	}
	c.JSON(http.StatusCreated, viewOf(rec))
}

func (h Handlers) GetCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	rec, err := h.Ledger.GetByCallID(c.Request.Context(), id, callID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(rec))
}

// ListCalls returns call history newest-first. Users see their own calls;
// the service role may pass user_id to scope, or omit it to span the ledger.
func (h Handlers) ListCalls(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	filter := ledger.ListFilter{
		Status:   ledger.CallStatus(c.Query("status")),
		CallType: c.Query("call_type"),
	}
	if filter.Status != "" && !ledger.ValidStatus(filter.Status) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	userID := c.Query("user_id")
	var (
		recs []ledger.CallRecord
		err  error
	)
	if userID == "" && id.Service() {
		recs, err = h.Ledger.ListAll(c.Request.Context(), id, filter)
	} else {
		recs, err = h.Ledger.ListByUser(c.Request.Context(), id, userID, filter)
	}
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": viewsOf(recs), "count": len(recs)})
}

// CallStats returns aggregated lifecycle and outcome metrics.
func (h Handlers) CallStats(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	req := reporting.CallStatsRequest{
		UserID:   c.Query("user_id"),
		CallType: c.Query("call_type"),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		req.Range.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		req.Range.To = t
	}

	stats, err := h.Reporting.CallStats(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid stats request"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- Users ---

// UpsertUser registers or refreshes a user profile keyed by external id.
// Service role only; profiles arrive from the assistant platform.
func (h Handlers) UpsertUser(c *gin.Context) {
	var p users.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Users.GetOrCreate(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, users.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) GetUser(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	userID := c.Param("user_id")
	if !id.Service() && id.UserID != userID {
		// Same posture as the ledger: rows you cannot see do not exist.
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	u, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteUser removes a user. Their calls survive with user_id detached.
func (h Handlers) DeleteUser(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	userID := c.Param("user_id")

	if err := h.Users.Delete(c.Request.Context(), userID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if h.Audit != nil {
		_ = h.Audit.LogUserDeleted(c.Request.Context(), id.UserID, id.Role, c.ClientIP(), userID)
	}
	c.Status(http.StatusNoContent)
}
