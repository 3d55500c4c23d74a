package timeentry

import (
	"context"
	"time"
)

// PunchService handles kiosk, remote and manual intake.
type PunchService interface {
	PunchIn(ctx context.Context, req PunchInRequest) (EntryResponse, error)
	PunchOut(ctx context.Context, req PunchOutRequest) (EntryResponse, error)
	StartBreak(ctx context.Context, req StartBreakRequest) (EntryResponse, error)
	EndBreak(ctx context.Context, req EndBreakRequest) (EntryResponse, error)
	CreateManualEntry(ctx context.Context, req ManualEntryRequest) (EntryResponse, error)
	AcknowledgeReminder(ctx context.Context, req AcknowledgeReminderRequest) error
}

// ReviewService holds supervisor operations. Every call returns ErrForbidden
// unless actor.CanReview is set. A request carrying an ExpectedVersion that no
// longer matches the stored entry fails with ErrConcurrencyConflict.
type ReviewService interface {
	Approve(ctx context.Context, actor Actor, req EntryActionRequest) (EntryResponse, error)
	Reject(ctx context.Context, actor Actor, req RejectRequest) (EntryResponse, error)
	Unapprove(ctx context.Context, actor Actor, req EntryActionRequest) (EntryResponse, error)
	EditClockOut(ctx context.Context, actor Actor, req EditClockOutRequest) (EntryResponse, error)
	Dispute(ctx context.Context, actor Actor, req DisputeRequest) (EntryResponse, error)
	Disable(ctx context.Context, actor Actor, req NoteRequest) (EntryResponse, error)
	Enable(ctx context.Context, actor Actor, req NoteRequest) (EntryResponse, error)
	ClearManualVerification(ctx context.Context, actor Actor, req NoteRequest) (EntryResponse, error)
	BulkApprove(ctx context.Context, actor Actor, req BulkApproveRequest) (BulkApproveResponse, error)
	GetAutoCloseReview(ctx context.Context, actor Actor, entryID string) (AutoCloseReviewResponse, error)
	ResolveAutoClose(ctx context.Context, actor Actor, req ResolveAutoCloseRequest) (EntryResponse, error)
}

// QueryService is the read model used by reporting collaborators.
type QueryService interface {
	GetEntry(ctx context.Context, id string) (EntryResponse, error)
	ListEntries(ctx context.Context, filter EntryFilter) (ListEntriesResponse, error)
	ListPendingReview(ctx context.Context, filter ReviewFilter) (ListEntriesResponse, error)
	PaySummary(ctx context.Context, req PaySummaryRequest) (PaySummaryResponse, error)
}

// AutoCloser runs one escalation pass over all active entries.
type AutoCloser interface {
	ScanOverdue(ctx context.Context, now time.Time) (ScanResult, error)
}

// ScanResult counts what one scan did.
type ScanResult struct {
	Scanned         int
	RemindersSent   int
	DeliveryFailed  int
	AutoClosed      int
	Skipped         int
	Conflicts       int
	ResolveFailures int
	Errors          int
}
