package model

import (
	"errors"
	"strings"
)

type EditRequestStatus string

const (
	StatusPending  EditRequestStatus = "Pending"
	StatusReviewed EditRequestStatus = "Reviewed"
	StatusApproved EditRequestStatus = "Approved"
	StatusRejected EditRequestStatus = "Rejected"
)

var ErrUnknownStatus = errors.New("unknown edit request status")

var editRequestStatuses = []EditRequestStatus{StatusPending, StatusReviewed, StatusApproved, StatusRejected}

// transitions lists the statuses reachable from each status. Approved and
// Rejected are terminal.
var transitions = map[EditRequestStatus][]EditRequestStatus{
	StatusPending:  {StatusReviewed, StatusApproved, StatusRejected},
	StatusReviewed: {},
	StatusApproved: {},
	StatusRejected: {},
}

// ParseEditRequestStatus matches s case-insensitively against the known
// statuses.
func ParseEditRequestStatus(s string) (EditRequestStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range editRequestStatuses {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", ErrUnknownStatus
}

func (s EditRequestStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s EditRequestStatus) CanTransitionTo(next EditRequestStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s EditRequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}
