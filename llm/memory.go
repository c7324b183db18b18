package llm

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/guiperry/moneymanager/utils"
)

func init() {
	// Encodings ship with the binary; token counting never touches the network.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Turn is one (input, output) exchange recorded by a Chain.
type Turn struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Tokens int    `json:"tokens,omitempty"`
}

// Memory is the append-only conversation log of one chain. It is never
// truncated or deduplicated.
type Memory struct {
	inputKey    string
	turns       []Turn
	mutex       sync.Mutex
	totalTokens int
	encoding    *tiktoken.Tiktoken
	logger      utils.Logger

	tokenizerModel string
}

type MemoryOption func(*Memory) error

// WithTokenizer counts tokens per turn with the encoding of model, falling
// back to cl100k_base for models tiktoken does not know. The encoding is
// resolved once every option has been applied.
func WithTokenizer(model string) MemoryOption {
	return func(m *Memory) error {
		m.tokenizerModel = model
		return nil
	}
}

func WithMemoryLogger(logger utils.Logger) MemoryOption {
	return func(m *Memory) error {
		m.logger = logger
		return nil
	}
}

// NewMemory creates an empty log whose turns are keyed by inputKey, the
// template variable whose value is recorded as each turn's input.
func NewMemory(inputKey string, opts ...MemoryOption) (*Memory, error) {
	if inputKey == "" {
		return nil, fmt.Errorf("memory input key must not be empty")
	}
	m := &Memory{
		inputKey: inputKey,
		logger:   utils.NewNopLogger(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.tokenizerModel != "" {
		if err := m.loadEncoding(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Memory) loadEncoding() error {
	encoding, err := tiktoken.EncodingForModel(m.tokenizerModel)
	if err != nil {
		m.logger.Warn("Failed to get encoding for model, defaulting to cl100k_base", "model", m.tokenizerModel, "error", err)
		encoding, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return fmt.Errorf("failed to get default encoding: %w", err)
		}
	}
	m.encoding = encoding
	return nil
}

// InputKey is the template variable recorded as each turn's input.
func (m *Memory) InputKey() string {
	return m.inputKey
}

// Append records one exchange at the end of the log.
func (m *Memory) Append(input, output string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	turn := Turn{Input: input, Output: output}
	if m.encoding != nil {
		turn.Tokens = len(m.encoding.Encode(input, nil, nil)) + len(m.encoding.Encode(output, nil, nil))
	}
	m.turns = append(m.turns, turn)
	m.totalTokens += turn.Tokens
	m.logger.Debug("Added turn to memory", "input_key", m.inputKey, "turns", len(m.turns), "tokens", turn.Tokens, "total_tokens", m.totalTokens)
}

// Render formats the log as alternating "Human:" and "AI:" lines in
// insertion order. An empty log renders as "".
func (m *Memory) Render() string {
	var b strings.Builder
	for turn := range m.Turns() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Human: ")
		b.WriteString(turn.Input)
		b.WriteString("\nAI: ")
		b.WriteString(turn.Output)
	}
	return b.String()
}

// Turns iterates over the turns recorded when it is called. Each range over
// the returned sequence starts again from the first turn.
func (m *Memory) Turns() iter.Seq[Turn] {
	turns := m.Snapshot()
	return slices.Values(turns)
}

// Snapshot returns a copy of the recorded turns.
func (m *Memory) Snapshot() []Turn {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return slices.Clone(m.turns)
}

func (m *Memory) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.turns)
}

// TotalTokens is the sum of per-turn token counts; zero without a tokenizer.
func (m *Memory) TotalTokens() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.totalTokens
}
