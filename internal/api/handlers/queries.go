package handlers

import (
	"net/http"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type FailQueryPayload struct {
	Reason string `json:"reason"`
}

// NotifyXcmResponse accepts a remote response pushed over http. It behaves
// like the xcm response queue: unknown and duplicate ids are ignored.
func (h *Handler) NotifyXcmResponse(request *http.Request) (*Result, *types.Error) {
	resp := &types.QueryResponse{}
	if err := decodePayload(request, resp); err != nil {
		return nil, err
	}
	if resp.QueryID == 0 {
		return nil, badRequest("invalid query_id")
	}
	if err := h.services.NotifyQueryResponse(request.Context(), *resp); err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusAccepted, Data: &PublicResponse[uint64]{Data: resp.QueryID}}, nil
}

func (h *Handler) GetQueries(request *http.Request) (*Result, *types.Error) {
	var status types.QueryStatus
	if s := request.URL.Query().Get("status"); s != "" {
		var ok bool
		if status, ok = types.QueryStatusFromString(s); !ok {
			return nil, badRequest("invalid status")
		}
	}
	paginationKey := request.URL.Query().Get("pagination_key")

	queries, nextKey, err := h.services.Queries(request.Context(), status, paginationKey)
	if err != nil {
		return nil, err
	}
	return NewResultWithPagination(queries, nextKey), nil
}

func (h *Handler) GetQuery(request *http.Request) (*Result, *types.Error) {
	id, err := parseIdParam(request, "id")
	if err != nil {
		return nil, err
	}
	q, err := h.services.Query(request.Context(), id)
	if err != nil {
		return nil, err
	}
	return NewResult(q), nil
}

func (h *Handler) FailQuery(request *http.Request) (*Result, *types.Error) {
	id, err := parseIdParam(request, "id")
	if err != nil {
		return nil, err
	}
	payload := &FailQueryPayload{}
	if err := decodePayload(request, payload); err != nil {
		return nil, err
	}
	if payload.Reason == "" {
		return nil, badRequest("reason is required")
	}
	ctx := request.Context()
	if err := h.services.FailQuery(ctx, id, payload.Reason); err != nil {
		return nil, err
	}
	q, err := h.services.Query(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewResult(q), nil
}

func (h *Handler) RetryQuery(request *http.Request) (*Result, *types.Error) {
	id, err := parseIdParam(request, "id")
	if err != nil {
		return nil, err
	}
	retry, err := h.services.RetryQuery(request.Context(), id)
	if err != nil {
		return nil, err
	}
	return NewAcceptedResult(retry), nil
}
