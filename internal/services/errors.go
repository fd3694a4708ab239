// Package services implements the messaging write and read protocols over
// the denormalized views: the ordered message fan-out, conversation
// resolution for an unordered user pair, and paginated reads.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-messenger-store/internal/repo"
)

// Input validation errors.
var (
	// ErrEmptyContent is returned when message content is blank after trimming.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrContentTooLong is returned when content exceeds the configured rune cap.
	ErrContentTooLong = errors.New("message content too long")

	// ErrInvalidUserID is returned for user ids that are not UUIDs.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrSameUser is returned when sender and receiver are the same user.
	ErrSameUser = errors.New("sender and receiver must differ")
)

// Lookup errors.
var (
	// ErrConversationNotFound indicates that no canonical conversation row
	// exists for the requested id.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNotParticipant is returned when a message names users that are not
	// the conversation's pair.
	ErrNotParticipant = errors.New("users are not the conversation's participants")

	// ErrPageTooDeep is returned when page*limit exceeds the over-fetch cap.
	ErrPageTooDeep = repo.ErrPageTooDeep

	// ErrIDContention is returned when the conversation id sequence could not
	// be advanced within the attempt budget.
	ErrIDContention = errors.New("conversation id allocation contended")
)

// Fan-out steps, in execution order.
const (
	StepInsertMessage  = "insert_message"
	StepMirrorSender   = "mirror_sender"
	StepMirrorReceiver = "mirror_receiver"
	StepUpdateSummary  = "update_summary"
	StepRefreshSender  = "refresh_sender_conversation"
	StepRefreshRecv    = "refresh_receiver_conversation"
)

// FanoutError reports a send that failed part-way. Steps in Completed were
// applied and are not rolled back; views may disagree until a later send
// on the same conversation overwrites the summary.
type FanoutError struct {
	Step      string
	Completed []string
	Err       error
}

func (e *FanoutError) Error() string {
	if len(e.Completed) == 0 {
		return fmt.Sprintf("send message: %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("send message: %s failed after [%s]: %v", e.Step, strings.Join(e.Completed, ", "), e.Err)
}

func (e *FanoutError) Unwrap() error { return e.Err }
