package models

import "time"

// AccountState tracks an account through the orchestrator state machine
type AccountState string

const (
	AccountPending        AccountState = "pending"
	AccountAuthenticating AccountState = "authenticating"
	AccountProbing        AccountState = "probing"
	AccountDiscovering    AccountState = "discovering"
	AccountDone           AccountState = "done"
	AccountFailed         AccountState = "failed"
)

// AccountStats holds per-account run statistics
type AccountStats struct {
	AccountID      string        `json:"account_id"`
	AccountName    string        `json:"account_name,omitempty"`
	State          AccountState  `json:"state"`
	ResourceCount  int           `json:"resource_count"`
	ProcessingTime time.Duration `json:"processing_time"`
	ErrorCount     int           `json:"error_count"`
	WarningCount   int           `json:"warning_count"`
	Regions        []string      `json:"regions"`
	Services       []string      `json:"services"`
	FailureReason  string        `json:"failure_reason,omitempty"`
}

// RunResult is the structured outcome of a full inventory run. It is
// returned even when some accounts failed; only an invalid policy or a
// process-wide cancellation aborts a run.
type RunResult struct {
	RunID              string         `json:"run_id"`
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	Records            []Resource     `json:"records"`
	Accounts           []AccountStats `json:"accounts"`
	SuccessfulAccounts int            `json:"successful_accounts"`
	FailedAccounts     int            `json:"failed_accounts"`
	Warnings           []string       `json:"warnings,omitempty"`
	PartialSuccess     bool           `json:"partial_success"`
}

// TotalResources returns the consolidated record count
func (r *RunResult) TotalResources() int {
	return len(r.Records)
}
