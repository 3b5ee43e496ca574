package reporting

import (
	"context"
	"errors"

	"call-ledger/internal/access"
	"call-ledger/internal/ledger"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// CallSource abstracts the ledger read path. Visibility is the source's job;
// reporting only aggregates whatever rows the caller is allowed to see.
type CallSource interface {
	ListByUser(ctx context.Context, id access.Identity, userID string, f ledger.ListFilter) ([]ledger.CallRecord, error)
	ListAll(ctx context.Context, id access.Identity, f ledger.ListFilter) ([]ledger.CallRecord, error)
}

type Service struct {
	source CallSource
}

func NewService(source CallSource) *Service { return &Service{source: source} }

// CallStats aggregates lifecycle and outcome metrics over visible calls.
// A service-role request with no UserID spans the whole ledger.
func (s *Service) CallStats(ctx context.Context, id access.Identity, req CallStatsRequest) (CallStats, error) {
	if !req.Range.valid() {
		return CallStats{}, ErrInvalidRequest
	}
	if s.source == nil {
		return CallStats{}, errors.New("reporting: call source not configured")
	}

	filter := ledger.ListFilter{CallType: req.CallType}

	var (
		rows []ledger.CallRecord
		err  error
	)
	if req.UserID == "" && id.Service() {
		rows, err = s.source.ListAll(ctx, id, filter)
	} else {
		rows, err = s.source.ListByUser(ctx, id, req.UserID, filter)
	}
	if err != nil {
		return CallStats{}, err
	}

	out := CallStats{
		UserID:     req.UserID,
		CallType:   req.CallType,
		ByCallType: map[string]TypeStats{},
	}
	evaluated := 0
	measured := 0
	for _, c := range rows {
		if !req.Range.contains(c.CreatedAt) {
			continue
		}
		out.TotalCalls++

		byType := out.ByCallType[c.CallType]
		byType.TotalCalls++

		if c.Status == ledger.StatusEnded {
			out.EndedCalls++
		} else {
			out.ActiveCalls++
		}
		if c.DurationSeconds != nil {
			out.TotalDurationSeconds += *c.DurationSeconds
			measured++
		}
		if c.Success != nil {
			evaluated++
			if *c.Success {
				out.SuccessCalls++
				byType.SuccessCalls++
			} else {
				out.FailedCalls++
				byType.FailedCalls++
			}
		}
		out.ByCallType[c.CallType] = byType
	}

	if evaluated > 0 {
		out.SuccessRate = float64(out.SuccessCalls) / float64(evaluated)
	}
	if measured > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / measured
	}
	if out.TotalCalls == 0 {
		out.ByCallType = nil
	}
	return out, nil
}
