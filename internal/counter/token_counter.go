package counter

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the tiktoken encoding used for the TOKEN unit.
const encodingName = "cl100k_base"

var (
	sharedEncoding    *tiktoken.Tiktoken
	sharedEncodingErr error
	encodingOnce      sync.Once
)

// loadEncoding initializes the cl100k_base encoding once per process; loading the BPE
// ranks is far more expensive than any single count.
func loadEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		slog.Debug("Initializing tiktoken encoding", "encoding", encodingName)
		sharedEncoding, sharedEncodingErr = tiktoken.GetEncoding(encodingName)
	})
	return sharedEncoding, sharedEncodingErr
}

// TokenCounter implements token counting using tiktoken w/ cl100k_base encoding.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex // protects encoding access for thread safety
}

// NewTokenCounter creates a new TokenCounter backed by the shared encoding.
func NewTokenCounter() (Counter, error) {
	encoding, err := loadEncoding()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s encoding: %w", encodingName, err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// Count returns the number of tokens in the given text.
// This can be called concurrently
func (tc *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}

	tc.mu.RLock()
	defer tc.mu.RUnlock()

	// nil params mean no special tokens allowed/disallowed
	return len(tc.encoding.Encode(text, nil, nil))
}

// Name returns the name of this counting method (for logging and debugging).
func (tc *TokenCounter) Name() string {
	return "tokens (" + encodingName + ")"
}
