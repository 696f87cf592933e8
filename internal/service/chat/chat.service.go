package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/repository"
)

// Failure classes for one model call. The dispatcher maps each to its own
// user-facing reply so partial outages stay legible.
var (
	ErrTimeout   = errors.New("model response timed out")
	ErrUpstream  = errors.New("model service returned an error")
	ErrTransport = errors.New("model service unreachable")
)

// systemPrompt pins the persona and the disclaimer policy. It is prepended
// to every request and never stored in any user's history.
const systemPrompt = `You are CryptoSage, a professional cryptocurrency market analyst assistant.

What you can do:
1. Analyze live market data and price trends
2. Read whale movements and fund flows
3. Provide technical and market sentiment analysis
4. Answer cryptocurrency questions
5. Flag risks and give guidance, always with a disclaimer

Style:
- Professional but easy to follow; light use of emoji for readability
- Reason from the data you were given, state the basis for conclusions
- Always attach a risk disclaimer after anything resembling investment advice
- Keep replies under 500 words

Important: everything you say is for information only and is not investment advice.`

const (
	defaultModel        = "deepseek-chat"
	defaultTemperature  = 0.7
	defaultMaxTokens    = 800
	defaultCallTimeout  = 30 * time.Second
	defaultHistoryLimit = 20
)

// CompletionClient is the slice of the chat completion API the service
// needs. *openai.Client satisfies it.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	HistoryLimit int
}

// Service turns one inbound user message into one assistant reply, holding a
// capped rolling history per user.
type Service struct {
	llm           CompletionClient
	conversations repository.ConversationStore
	opts          Options
}

func NewService(llm CompletionClient, conversations repository.ConversationStore, opts Options) *Service {
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = defaultModel
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCallTimeout
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}

	return &Service{
		llm:           llm,
		conversations: conversations,
		opts:          opts,
	}
}

// Reply answers one user turn and records the exchange. marketContext, when
// non-empty, is prepended to the message as a labeled block: the combined
// text is what enters history, so the data grounds exactly this exchange and
// is never re-fetched or re-injected on later turns.
//
// One attempt per turn. On failure the user entry stays in history and no
// assistant entry is written; the user may simply ask again.
func (s *Service) Reply(ctx context.Context, userID int64, message, marketContext string) (string, error) {
	fullMessage := message
	if strings.TrimSpace(marketContext) != "" {
		fullMessage = fmt.Sprintf("[Live market data]\n%s\n\n[User question]\n%s", marketContext, message)
	}

	err := s.conversations.Append(ctx, userID, entity.ChatMessage{Role: entity.RoleUser, Content: fullMessage})
	if err != nil {
		return "", fmt.Errorf("append user entry: %w", err)
	}

	// Trim to the cap before sending, never after: the payload below and the
	// retained history are always within the cap.
	window, err := s.conversations.Window(ctx, userID, s.opts.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load conversation window: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(window)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range window {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.llm.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       s.opts.Model,
		Messages:    messages,
		Temperature: float32(s.opts.Temperature),
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		classified := classifyError(err)
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"model":   s.opts.Model,
		}).Warnf("chat completion failed: %v", err)

		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}

	reply := resp.Choices[0].Message.Content

	err = s.conversations.Append(ctx, userID, entity.ChatMessage{Role: entity.RoleAssistant, Content: reply})
	if err != nil {
		return "", fmt.Errorf("append assistant entry: %w", err)
	}

	return reply, nil
}

// Clear drops the user's entire history.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.conversations.Clear(ctx, userID)
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &apiErr):
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}
