package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getLibraryStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/stats",
		Summary:     "Get library stats",
		Description: "Returns counts of books, members, pending requests and overdue readings",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAuditLogs",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/audit-logs",
		Summary:     "List audit logs",
		Description: "Returns admin actions, newest first",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAuditLogs)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPendingRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/requests/pending",
		Summary:     "List pending requests",
		Description: "Returns every pending request, highest priority first",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePendingRequests)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/books/{id}/requests",
		Summary:     "List requests for book",
		Description: "Returns the pending queue for one book, highest priority first",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleBookRequests)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/requests/{id}/approve",
		Summary:     "Approve request",
		Description: "Approves a pending request. An available book goes straight to the requester; a held book gets a handover thread.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleApproveRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/requests/{id}/reject",
		Summary:     "Reject request",
		Description: "Rejects a pending request with a reason",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRejectRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users",
		Summary:     "List users",
		Description: "Returns members, newest first",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "changeUserRole",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/users/{id}/role",
		Summary:     "Change role",
		Description: "Promotes a member to admin or demotes an admin",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleChangeRole)

	huma.Register(s.api, huma.Operation{
		OperationID: "adjustUserScore",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/users/{id}/score",
		Summary:     "Adjust score",
		Description: "Adds to or subtracts from a member's success score. The change is written to the ledger.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdjustScore)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportBookLost",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/books/{id}/lost",
		Summary:     "Report book lost",
		Description: "Closes the current reading as lost and penalises the holder",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReportLost)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyLedgers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/ledger/verify",
		Summary:     "Verify ledgers",
		Description: "Replays every member's ledger and returns those that do not explain the stored score",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVerifyLedgers)
}

// LibraryStatsOutput wraps library stats for Huma.
type LibraryStatsOutput struct {
	Body *domain.LibraryStats
}

// AuditPageOutput wraps a page of audit rows for Huma.
type AuditPageOutput struct {
	Body *service.AuditPage
}

// RequestIDInput addresses a single request.
type RequestIDInput struct {
	ID string `path:"id" doc:"Request ID"`
}

// ApproveRequestBody carries the due date for an approval.
type ApproveRequestBody struct {
	DueDate time.Time `json:"due_date" doc:"When the reading must end (RFC 3339)"`
}

// ApproveRequestInput wraps the approval for Huma.
type ApproveRequestInput struct {
	ID   string `path:"id" doc:"Request ID"`
	Body ApproveRequestBody
}

// RejectRequestBody carries the rejection reason.
type RejectRequestBody struct {
	Reason string `json:"reason" minLength:"1" maxLength:"1000" doc:"Why the request was rejected"`
}

// RejectRequestInput wraps the rejection for Huma.
type RejectRequestInput struct {
	ID   string `path:"id" doc:"Request ID"`
	Body RejectRequestBody
}

// UserPageOutput wraps a page of members for Huma.
type UserPageOutput struct {
	Body *service.UserPage
}

// ChangeRoleBody carries the new role.
type ChangeRoleBody struct {
	Role string `json:"role" enum:"admin,member" doc:"New role"`
}

// ChangeRoleInput wraps the role change for Huma.
type ChangeRoleInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body ChangeRoleBody
}

// AdjustScoreBody carries a manual score change.
type AdjustScoreBody struct {
	Amount int    `json:"amount" doc:"Points to add; negative to subtract"`
	Reason string `json:"reason" minLength:"1" maxLength:"500" doc:"Recorded on the ledger entry"`
}

// AdjustScoreInput wraps the score change for Huma.
type AdjustScoreInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body AdjustScoreBody
}

// LedgerEntryOutput wraps a ledger entry for Huma.
type LedgerEntryOutput struct {
	Body *domain.LedgerEntry
}

// LedgerVerifyResponse lists members whose ledger has drifted.
type LedgerVerifyResponse struct {
	Consistent bool                    `json:"consistent" doc:"True when every ledger explains its score"`
	Drifted    []*service.LedgerReport `json:"drifted" doc:"Members whose ledger does not explain the stored score"`
}

// LedgerVerifyOutput wraps the ledger check for Huma.
type LedgerVerifyOutput struct {
	Body LedgerVerifyResponse
}

func (s *Server) handleAdminStats(ctx context.Context, _ *struct{}) (*LibraryStatsOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := s.services.Admin.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &LibraryStatsOutput{Body: stats}, nil
}

func (s *Server) handleAuditLogs(ctx context.Context, input *PageInput) (*AuditPageOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	page, err := s.services.Audit.List(ctx, input.Page, input.Limit)
	if err != nil {
		return nil, err
	}
	return &AuditPageOutput{Body: page}, nil
}

func (s *Server) handlePendingRequests(ctx context.Context, _ *struct{}) (*RequestListOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	reqs, err := s.services.Requests.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return requestList(reqs), nil
}

func (s *Server) handleBookRequests(ctx context.Context, input *BookIDInput) (*RequestListOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	reqs, err := s.services.Requests.ListForBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return requestList(reqs), nil
}

func requestList(reqs []*domain.RankedRequest) *RequestListOutput {
	if reqs == nil {
		reqs = []*domain.RankedRequest{}
	}
	return &RequestListOutput{Body: RequestListResponse{Requests: reqs}}
}

func (s *Server) handleApproveRequest(ctx context.Context, input *ApproveRequestInput) (*BookRequestOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.services.Requests.Approve(ctx, adminID, input.ID, input.Body.DueDate)
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}

func (s *Server) handleRejectRequest(ctx context.Context, input *RejectRequestInput) (*BookRequestOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.services.Requests.Reject(ctx, adminID, input.ID, input.Body.Reason)
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}

func (s *Server) handleListUsers(ctx context.Context, input *PageInput) (*UserPageOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	page, err := s.services.Admin.ListUsers(ctx, input.Page, input.Limit)
	if err != nil {
		return nil, err
	}
	return &UserPageOutput{Body: page}, nil
}

func (s *Server) handleChangeRole(ctx context.Context, input *ChangeRoleInput) (*UserOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Admin.ChangeRole(ctx, adminID, input.ID, domain.Role(input.Body.Role))
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}

func (s *Server) handleAdjustScore(ctx context.Context, input *AdjustScoreInput) (*LedgerEntryOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := s.services.Reputation.AdjustScore(ctx, adminID, input.ID, input.Body.Amount, input.Body.Reason)
	if err != nil {
		return nil, err
	}
	return &LedgerEntryOutput{Body: entry}, nil
}

func (s *Server) handleReportLost(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	book, err := s.services.Circulation.ReportLost(ctx, adminID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleVerifyLedgers(ctx context.Context, _ *struct{}) (*LedgerVerifyOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	drifted, err := s.services.Reputation.VerifyAll(ctx)
	if err != nil {
		return nil, err
	}
	if drifted == nil {
		drifted = []*service.LedgerReport{}
	}
	return &LedgerVerifyOutput{Body: LedgerVerifyResponse{Consistent: len(drifted) == 0, Drifted: drifted}}, nil
}
