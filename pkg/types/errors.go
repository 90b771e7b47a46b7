package types

import "errors"

// Kind classifies an error for the presentation layer so that it never has
// to inspect transport or driver error text.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindInvalidCredential
	KindQuotaExceeded
	KindNetworkFailure
	KindMalformedAttachment
	KindInvalidImportFormat
	KindStorageQuotaExceeded
	KindGenerationFailed
	KindMalformedInput
	KindNotFound
	KindStorage
)

var kindNames = map[Kind]string{
	KindUnknown:              "Unknown",
	KindMissingCredential:    "MissingCredential",
	KindInvalidCredential:    "InvalidCredential",
	KindQuotaExceeded:        "QuotaExceeded",
	KindNetworkFailure:       "NetworkFailure",
	KindMalformedAttachment:  "MalformedAttachment",
	KindInvalidImportFormat:  "InvalidImportFormat",
	KindStorageQuotaExceeded: "StorageQuotaExceeded",
	KindGenerationFailed:     "GenerationFailed",
	KindMalformedInput:       "MalformedInput",
	KindNotFound:             "NotFound",
	KindStorage:              "Storage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Retryable reports whether the same request may succeed later unchanged.
func (k Kind) Retryable() bool {
	return k == KindQuotaExceeded || k == KindNetworkFailure
}

// Credential and generation errors.
var (
	ErrMissingCredential   = errors.New("no API credential configured")
	ErrInvalidCredential   = errors.New("API credential is invalid or was rejected")
	ErrQuotaExceeded       = errors.New("generation quota or rate limit exceeded")
	ErrNetworkFailure      = errors.New("could not reach the generation endpoint")
	ErrMalformedAttachment = errors.New("file data and MIME type must be supplied together")
	ErrGenerationFailed    = errors.New("generation request failed")
	ErrEmptyPrompt         = errors.New("prompt must not be empty without an attached file")
	ErrUnknownMode         = errors.New("unknown generation mode")
)

// Storage and session errors.
var (
	ErrInvalidImportFormat  = errors.New("import document needs string html and name fields")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrInvalidCreation      = errors.New("invalid creation")
	ErrNotFound             = errors.New("creation not found")
	ErrStoreDetached        = errors.New("store is detached")
	ErrAlreadyAttached      = errors.New("store is already attached")
)

// kindOrder is checked in sequence; the first sentinel found in the chain
// decides the kind.
var kindOrder = []struct {
	err  error
	kind Kind
}{
	{ErrMissingCredential, KindMissingCredential},
	{ErrInvalidCredential, KindInvalidCredential},
	{ErrQuotaExceeded, KindQuotaExceeded},
	{ErrNetworkFailure, KindNetworkFailure},
	{ErrMalformedAttachment, KindMalformedAttachment},
	{ErrInvalidImportFormat, KindInvalidImportFormat},
	{ErrStorageQuotaExceeded, KindStorageQuotaExceeded},
	{ErrGenerationFailed, KindGenerationFailed},
	{ErrEmptyPrompt, KindMalformedInput},
	{ErrUnknownMode, KindMalformedInput},
	{ErrInvalidCreation, KindMalformedInput},
	{ErrNotFound, KindNotFound},
	{ErrStoreDetached, KindStorage},
	{ErrAlreadyAttached, KindStorage},
}

// KindOf returns the Kind of err. Nil maps to KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, entry := range kindOrder {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindUnknown
}
