package session

import (
	"errors"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

var userMessages = map[types.Kind]string{
	types.KindMissingCredential:    "No Gemini API key is configured. Set one with `bringtolife key set` or supply it with the request.",
	types.KindInvalidCredential:    "The Gemini API key is invalid or lacks permission. Check the saved key.",
	types.KindQuotaExceeded:        "The Gemini quota or rate limit was reached. Wait a moment and try again, or check your billing.",
	types.KindNetworkFailure:       "Could not reach Gemini. Check your connection and try again.",
	types.KindMalformedAttachment:  "The attached file could not be read.",
	types.KindInvalidImportFormat:  "Invalid file format: an exported creation needs html and name fields.",
	types.KindStorageQuotaExceeded: "Storage is full; the creation could not be saved.",
	types.KindGenerationFailed:     "Something went wrong while bringing your file to life. Please try again.",
	types.KindMalformedInput:       "Describe what to build or attach a file.",
	types.KindNotFound:             "That creation no longer exists.",
	types.KindStorage:              "The history store is unavailable.",
}

// UserMessage returns the text shown to the user for err. It never exposes
// transport or driver detail.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, types.ErrUnknownMode) {
		return "Unknown mode. Choose app, davinci or fusion."
	}
	if msg, ok := userMessages[types.KindOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
