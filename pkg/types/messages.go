package types

import "encoding/json"

// Client -> Server
//   create_room: name
//   join_room:   code, name
//   start_game:  {}            (host only)
//   submit_word: word          (any JSON value; non-strings are rejected as EmptyWord)
//   vote:        suspectId
//   next_round:  {}            (host only)
//   get_state:   {}
//
// Every request may carry a requestId which is echoed on the reply.

const (
	ActionCreateRoom = "create_room"
	ActionJoinRoom   = "join_room"
	ActionStartGame  = "start_game"
	ActionSubmitWord = "submit_word"
	ActionVote       = "vote"
	ActionNextRound  = "next_round"
	ActionGetState   = "get_state"
)

type ClientMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Code      string          `json:"code,omitempty"`
	Word      json.RawMessage `json:"word,omitempty"`
	SuspectID string          `json:"suspectId,omitempty"`
}

// Server -> Client
//   ack / error:   reply to exactly one request
//   room_update, game_started, game_update, voting_phase, results_phase: per-viewer Snapshot
//   voting_update: VotingProgress

const (
	ReplyAck   = "ack"
	ReplyError = "error"

	EventRoomUpdate   = "room_update"
	EventGameStarted  = "game_started"
	EventGameUpdate   = "game_update"
	EventVotingPhase  = "voting_phase"
	EventVotingUpdate = "voting_update"
	EventResultsPhase = "results_phase"
)

type ServerMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Code      string          `json:"code,omitempty"`
	State     *Snapshot       `json:"state,omitempty"`
	Progress  *VotingProgress `json:"progress,omitempty"`
	Error     ErrorCode       `json:"error,omitempty"`
}

// ErrorCode is the only failure detail a caller ever sees.
type ErrorCode string

const (
	ErrCodeEmptyName           ErrorCode = "EmptyName"
	ErrCodeNameTooLong         ErrorCode = "NameTooLong"
	ErrCodeRoomNotFound        ErrorCode = "RoomNotFound"
	ErrCodeGameInProgress      ErrorCode = "GameInProgress"
	ErrCodeRoomFull            ErrorCode = "RoomFull"
	ErrCodeNameTaken           ErrorCode = "NameTaken"
	ErrCodeAlreadyInRoom       ErrorCode = "AlreadyInRoom"
	ErrCodeNotInRoom           ErrorCode = "NotInRoom"
	ErrCodeNotHost             ErrorCode = "NotHost"
	ErrCodeInsufficientPlayers ErrorCode = "InsufficientPlayers"
	ErrCodeInvalidPhase        ErrorCode = "InvalidPhase"
	ErrCodePlayerEliminated    ErrorCode = "PlayerEliminated"
	ErrCodeNotYourTurn         ErrorCode = "NotYourTurn"
	ErrCodeEmptyWord           ErrorCode = "EmptyWord"
	ErrCodeWordTooLong         ErrorCode = "WordTooLong"
	ErrCodeMultipleWords       ErrorCode = "MultipleWords"
	ErrCodeInvalidCharacters   ErrorCode = "InvalidCharacters"
	ErrCodeVoterEliminated     ErrorCode = "VoterEliminated"
	ErrCodeAlreadyVoted        ErrorCode = "AlreadyVoted"
	ErrCodeUnknownSuspect      ErrorCode = "UnknownSuspect"
	ErrCodeBadRequest          ErrorCode = "BadRequest"
	ErrCodeRateLimited         ErrorCode = "RateLimited"
	ErrCodeInternal            ErrorCode = "Internal"
)
