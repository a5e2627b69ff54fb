package ws

import (
	"errors"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
	"github.com/DoyleJ11/mindless-backend/internal/hub"
	"github.com/DoyleJ11/mindless-backend/internal/lobby"
	"github.com/DoyleJ11/mindless-backend/pkg/types"
)

var errBadRequest = errors.New("bad request")
var errRateLimited = errors.New("rate limited")

// errorCodes is checked in order; the first errors.Is match wins, so
// specialised errors must precede the family they wrap.
var errorCodes = []struct {
	err  error
	code types.ErrorCode
}{
	{engine.ErrEmptyName, types.ErrCodeEmptyName},
	{engine.ErrNameTooLong, types.ErrCodeNameTooLong},
	{hub.ErrRoomNotFound, types.ErrCodeRoomNotFound},
	{lobby.ErrRoomClosed, types.ErrCodeRoomNotFound},
	{engine.ErrGameInProgress, types.ErrCodeGameInProgress},
	{engine.ErrRoomFull, types.ErrCodeRoomFull},
	{engine.ErrNameTaken, types.ErrCodeNameTaken},
	{engine.ErrAlreadyInRoom, types.ErrCodeAlreadyInRoom},
	{engine.ErrNotInRoom, types.ErrCodeNotInRoom},
	{engine.ErrNotHost, types.ErrCodeNotHost},
	{engine.ErrInsufficientPlayers, types.ErrCodeInsufficientPlayers},
	{engine.ErrInvalidPhase, types.ErrCodeInvalidPhase},
	{engine.ErrPlayerEliminated, types.ErrCodePlayerEliminated},
	{engine.ErrNotYourTurn, types.ErrCodeNotYourTurn},
	{engine.ErrEmptyWord, types.ErrCodeEmptyWord},
	{engine.ErrWordTooLong, types.ErrCodeWordTooLong},
	{engine.ErrMultipleWords, types.ErrCodeMultipleWords},
	{engine.ErrInvalidCharacters, types.ErrCodeInvalidCharacters},
	{engine.ErrVoterEliminated, types.ErrCodeVoterEliminated},
	{engine.ErrAlreadyVoted, types.ErrCodeAlreadyVoted},
	{engine.ErrUnknownSuspect, types.ErrCodeUnknownSuspect},
	{engine.ErrUnsupportedCommand, types.ErrCodeBadRequest},
	{errBadRequest, types.ErrCodeBadRequest},
	{errRateLimited, types.ErrCodeRateLimited},
}

// ErrorCode maps err to the wire code a client sees. Anything unknown is
// Internal.
func ErrorCode(err error) types.ErrorCode {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return types.ErrCodeInternal
}
