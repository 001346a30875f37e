package completion

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoding     *tiktoken.Tiktoken
	encodingOnce sync.Once
)

func tokenizer() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// CountTokens estimates the tokens in text with the cl100k_base encoding,
// falling back to one token per four bytes when it cannot be loaded.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if enc := tokenizer(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}
