package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"call-ledger/internal/access"

	"github.com/google/uuid"
)

// Store is the persistence contract for the call ledger.
//
// UpdateStatusCAS is a compare-and-swap: the write applies only if the stored
// status still equals expect. The loser of a webhook race observes ok=false
// and no partial write.
type Store interface {
	Insert(ctx context.Context, rec CallRecord) error
	GetByCallID(ctx context.Context, callID string) (CallRecord, error)
	UpdateStatusCAS(ctx context.Context, callID string, expect, next CallStatus, term TerminalFields, now time.Time) (CallRecord, bool, error)
	Amend(ctx context.Context, callID string, a Amendment, now time.Time) (CallRecord, error)
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]CallRecord, error)
	ListAll(ctx context.Context, f ListFilter) ([]CallRecord, error)
}

// Guard caps concurrently active calls per user. A nil Guard disables the cap.
type Guard interface {
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

// TerminalFields are merged into a record when it transitions into ended.
type TerminalFields struct {
	EndedReason     string `json:"ended_reason,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	Transcript      string `json:"transcript,omitempty"`
	Summary         string `json:"summary,omitempty"`
	Success         *bool  `json:"success,omitempty"`
}

// Amendment is a field-only update: the terminal data delivered by the
// provider's final webhook. It never touches status or endedAt, so it is
// allowed on ended records.
type Amendment struct {
	EndedReason     string `json:"ended_reason,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	Transcript      string `json:"transcript,omitempty"`
	Summary         string `json:"summary,omitempty"`
	Success         *bool  `json:"success,omitempty"`
}

func (a Amendment) empty() bool {
	return a.EndedReason == "" && a.DurationSeconds == nil &&
		a.Transcript == "" && a.Summary == "" && a.Success == nil
}

// ListFilter narrows ListByUser/ListAll. Zero values mean "no filter".
type ListFilter struct {
	Status   CallStatus
	CallType string
	Limit    int
}

// CreateCallRequest is the orchestrator-facing input for a new ledger entry.
type CreateCallRequest struct {
	UserID      string `json:"user_id,omitempty"`
	CallID      string `json:"call_id"`
	PhoneNumber string `json:"phone_number"`
	CallType    string `json:"call_type,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// Service owns call lifecycle rules. All mutations are single-row; no
// cross-record coordination exists because each call is independent.
type Service struct {
	store Store
	guard Guard
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, guard Guard) *Service {
	return &Service{store: store, guard: guard, clock: time.Now}
}

// CreateCall inserts a new record with status initiated.
// Fails with ErrDuplicateCallID when the provider call id already exists.
func (s *Service) CreateCall(ctx context.Context, req CreateCallRequest) (CallRecord, error) {
	if strings.TrimSpace(req.CallID) == "" {
		return CallRecord{}, errors.Join(ErrValidation, errors.New("call_id required"))
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return CallRecord{}, errors.Join(ErrValidation, errors.New("phone_number required"))
	}
	callType := strings.TrimSpace(req.CallType)
	if callType == "" {
		callType = DefaultCallType
	}
	metadata := strings.TrimSpace(req.Metadata)
	if metadata == "" {
		metadata = "{}"
	} else if !json.Valid([]byte(metadata)) {
		return CallRecord{}, errors.Join(ErrValidation, errors.New("metadata must be valid JSON"))
	}

	if s.guard != nil && req.UserID != "" {
		ok, err := s.guard.Acquire(ctx, req.UserID)
		if err != nil {
			return CallRecord{}, err
		}
		if !ok {
			return CallRecord{}, ErrActiveCallLimit
		}
	}

	now := s.clock().UTC()
	rec := CallRecord{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		CallID:      req.CallID,
		PhoneNumber: req.PhoneNumber,
		CallType:    callType,
		Status:      StatusInitiated,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		if s.guard != nil && req.UserID != "" {
			_ = s.guard.Release(ctx, req.UserID)
		}
		return CallRecord{}, err
	}
	return rec, nil
}

// UpdateStatus moves the call identified by the provider call id forward
// through the lifecycle. Terminal fields are merged only when next is ended;
// endedAt is set exactly once, on the transition into ended.
//
// Concurrent webhooks racing on the same record are serialized by the store's
// compare-and-swap: the loser fails with ErrInvalidTransition and writes nothing.
func (s *Service) UpdateStatus(ctx context.Context, callID string, next CallStatus, term TerminalFields) (CallRecord, error) {
	if !ValidStatus(next) {
		return CallRecord{}, errors.Join(ErrValidation, errors.New("unknown status"))
	}
	if term.DurationSeconds != nil && *term.DurationSeconds < 0 {
		return CallRecord{}, errors.Join(ErrValidation, errors.New("duration_seconds must be >= 0"))
	}
	if next != StatusEnded {
		// Terminal fields are only meaningful on the ended transition.
		term = TerminalFields{}
	}

	// CAS loop: a lost race re-reads and re-validates. Bounded because the
	// lifecycle only moves forward; after a few rounds the transition is
	// either applied or provably invalid.
	for attempt := 0; attempt < 3; attempt++ {
		cur, err := s.store.GetByCallID(ctx, callID)
		if err != nil {
			return CallRecord{}, err
		}
		if !CanTransition(cur.Status, next) {
			return CallRecord{}, ErrInvalidTransition
		}

		now := s.clock().UTC()
		updated, ok, err := s.store.UpdateStatusCAS(ctx, callID, cur.Status, next, term, now)
		if err != nil {
			return CallRecord{}, err
		}
		if ok {
			if next == StatusEnded && s.guard != nil && updated.UserID != "" {
				// Best-effort: the slot also expires via TTL.
				_ = s.guard.Release(ctx, updated.UserID)
			}
			return updated, nil
		}
	}
	return CallRecord{}, ErrInvalidTransition
}

// Amend applies a field-only update (ended reason, duration, transcript,
// summary, outcome) without touching status. This is the explicitly-allowed
// path for a provider's final webhook that carries terminal data for an
// already-ended call.
func (s *Service) Amend(ctx context.Context, callID string, a Amendment) (CallRecord, error) {
	if a.DurationSeconds != nil && *a.DurationSeconds < 0 {
		return CallRecord{}, errors.Join(ErrValidation, errors.New("duration_seconds must be >= 0"))
	}
	if a.empty() {
		return s.store.GetByCallID(ctx, callID)
	}
	return s.store.Amend(ctx, callID, a, s.clock().UTC())
}

// GetByCallID is a point lookup. Rows invisible to the caller behave as absent.
func (s *Service) GetByCallID(ctx context.Context, id access.Identity, callID string) (CallRecord, error) {
	rec, err := s.store.GetByCallID(ctx, callID)
	if err != nil {
		return CallRecord{}, err
	}
	if !id.CanSee(rec.UserID) {
		return CallRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListByUser returns the user's records ordered by createdAt descending.
// A non-service caller can only list their own records; requests for another
// user yield nothing, mirroring row-level visibility.
func (s *Service) ListByUser(ctx context.Context, id access.Identity, userID string, f ListFilter) ([]CallRecord, error) {
	if userID == "" {
		userID = id.UserID
	}
	if userID == "" {
		return nil, errors.Join(ErrValidation, errors.New("user_id required"))
	}
	if !id.Service() && userID != id.UserID {
		return []CallRecord{}, nil
	}
	return s.store.ListByUser(ctx, userID, f)
}

// ListAll is the service-credential read over the whole ledger (reporting).
func (s *Service) ListAll(ctx context.Context, id access.Identity, f ListFilter) ([]CallRecord, error) {
	if !id.Service() {
		return s.store.ListByUser(ctx, id.UserID, f)
	}
	return s.store.ListAll(ctx, f)
}
