package model

import "time"

const (
	ActionFileDownload       = "FILE_DOWNLOAD"
	ActionUserCreate         = "USER_CREATE"
	ActionUserUpdate         = "USER_UPDATE"
	ActionUserDelete         = "USER_DELETE"
	ActionUserApprove        = "USER_APPROVE"
	ActionUserReject         = "USER_REJECT"
	ActionUserActivate       = "USER_ACTIVATE"
	ActionUserDeactivate     = "USER_DEACTIVATE"
	ActionProfileImageUpdate = "PROFILE_IMAGE_UPDATE"
	ActionLogin              = "LOGIN"
)

// ActivityEntry is one append-only row of the activity log.
type ActivityEntry struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id,omitempty"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type ActivityQuery struct {
	Action string
	UserID string
	From   string
	To     string
	Page   int
	Limit  int
}

type ActivityListData struct {
	Items []ActivityEntry `json:"items"`
}
