package flow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/genai"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

const (
	// DefaultTurnCap is the maximum number of tool rounds in one chat() call.
	DefaultTurnCap = 5
	// FallbackReply is returned when the model ends a turn without text.
	FallbackReply = "I'm having trouble responding. Please try again."
)

// LoopState is the position of one chat() invocation in the conversation loop.
type LoopState int

const (
	// StateAwaitingModel: history is complete, the model is being invoked.
	StateAwaitingModel LoopState = iota
	// StateModelResponded: a reply arrived and is being classified.
	StateModelResponded
	// StateDispatch: the first tool call of the reply is being executed.
	StateDispatch
	// StateDone: the reply text is final.
	StateDone
)

func (s LoopState) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateModelResponded:
		return "MODEL_RESPONDED"
	case StateDispatch:
		return "DISPATCH"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// ToolExecutor runs one tool invocation and answers with text.
type ToolExecutor interface {
	Execute(ctx context.Context, identity string, call models.FunctionCall) string
}

// Loop drives model → tool → model rounds for one utterance. It holds no
// per-conversation state and is shared by all sessions.
type Loop struct {
	model       genai.ClientInterface
	executor    ToolExecutor
	tools       []openai.ChatCompletionToolParam
	turnCap     int
	stepTimeout time.Duration
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithTurnCap sets the maximum number of tool rounds per chat() call.
func WithTurnCap(n int) LoopOption {
	return func(l *Loop) { l.turnCap = n }
}

// WithStepTimeout bounds each model call and each tool dispatch.
func WithStepTimeout(d time.Duration) LoopOption {
	return func(l *Loop) { l.stepTimeout = d }
}

// WithTools replaces the tool catalog offered to the model.
func WithTools(tools []openai.ChatCompletionToolParam) LoopOption {
	return func(l *Loop) { l.tools = tools }
}

// NewLoop creates a Loop over model and executor with the default tool catalog.
func NewLoop(model genai.ClientInterface, executor ToolExecutor, opts ...LoopOption) *Loop {
	l := &Loop{
		model:    model,
		executor: executor,
		tools:    ToolCatalog(),
		turnCap:  DefaultTurnCap,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.turnCap < 0 {
		l.turnCap = 0
	}
	return l
}

// Turn is the result of one Run.
type Turn struct {
	// Reply is never empty.
	Reply string
	// Rounds is the number of tools dispatched.
	Rounds int
	// Messages are the history entries produced by this turn, starting with
	// the user utterance. When Err is set they stop at the last tool result,
	// and are empty if no tool was dispatched.
	Messages []openai.ChatCompletionMessageParamUnion
	// Err is the collaborator failure that ended the turn, if any. Reply
	// already carries it as "Error: <msg>".
	Err error
}

// Run executes one utterance against system + history. History is not
// modified; the caller appends Turn.Messages. Tools already dispatched may
// have written orders, so their exchange is returned even when a later
// model call fails.
func (l *Loop) Run(ctx context.Context, identity, system string, history []openai.ChatCompletionMessageParamUnion, utterance string) Turn {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2+2*l.turnCap)
	msgs = append(msgs, openai.SystemMessage(system))
	msgs = append(msgs, history...)
	start := len(msgs)
	msgs = append(msgs, openai.UserMessage(utterance))

	var (
		state   = StateAwaitingModel
		resp    *genai.ToolCallResponse
		rounds  int
		reply   string
		outcome string
	)
	for state != StateDone {
		switch state {
		case StateAwaitingModel:
			r, err := l.invoke(ctx, msgs)
			if err != nil {
				slog.Error("Loop.Run: model call failed", "error", err, "phone", identity, "round", rounds)
				chatTurnsTotal.WithLabelValues(outcomeError).Inc()
				toolRoundsPerChat.Observe(float64(rounds))
				turn := Turn{Reply: errorReply(err), Rounds: rounds, Err: err}
				if rounds > 0 {
					turn.Messages = msgs[start:]
				}
				return turn
			}
			resp = r
			state = StateModelResponded

		case StateModelResponded:
			switch {
			case len(resp.ToolCalls) == 0:
				reply, outcome = resp.Content, outcomeFinal
				state = StateDone
			case rounds >= l.turnCap:
				slog.Warn("Loop.Run: turn cap reached", "phone", identity, "turnCap", l.turnCap, "pendingTool", resp.ToolCalls[0].Function.Name)
				reply, outcome = resp.Content, outcomeTurnCap
				state = StateDone
			default:
				if len(resp.ToolCalls) > 1 {
					slog.Info("Loop.Run: dispatching first tool call only", "phone", identity, "toolCallCount", len(resp.ToolCalls))
				}
				state = StateDispatch
			}

		case StateDispatch:
			call := resp.ToolCalls[0]
			if call.ID == "" {
				call.ID = "call_" + uuid.NewString()
			}
			msgs = append(msgs, assistantToolCallMessage(resp.Content, call))
			result := l.dispatch(ctx, identity, call)
			msgs = append(msgs, openai.ToolMessage(result, call.ID))
			rounds++
			state = StateAwaitingModel
		}
	}

	if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
		if outcome == outcomeFinal {
			outcome = outcomeFallback
		}
	} else {
		msgs = append(msgs, openai.AssistantMessage(reply))
	}
	chatTurnsTotal.WithLabelValues(outcome).Inc()
	toolRoundsPerChat.Observe(float64(rounds))
	slog.Debug("Loop.Run: turn complete", "phone", identity, "rounds", rounds, "outcome", outcome, "replyLength", len(reply))
	return Turn{Reply: reply, Rounds: rounds, Messages: msgs[start:]}
}

func (l *Loop) invoke(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (*genai.ToolCallResponse, error) {
	ctx, cancel := l.stepContext(ctx)
	defer cancel()
	begin := time.Now()
	resp, err := l.model.GenerateWithTools(ctx, msgs, l.tools)
	result := "ok"
	if err != nil {
		result = "error"
	}
	modelCallDuration.WithLabelValues(result).Observe(time.Since(begin).Seconds())
	return resp, err
}

func (l *Loop) dispatch(ctx context.Context, identity string, call models.ToolCall) string {
	ctx, cancel := l.stepContext(ctx)
	defer cancel()
	slog.Info("Loop.dispatch: executing tool", "phone", identity, "tool", call.Function.Name, "toolCallID", call.ID, "args", formatToolArgumentsForLog(call.Function.Arguments))
	toolDispatchTotal.WithLabelValues(toolLabel(call.Function.Name)).Inc()
	result := l.executor.Execute(ctx, identity, call.Function)
	slog.Debug("Loop.dispatch: tool result", "phone", identity, "tool", call.Function.Name, "result", formatToolResultForLog(result))
	return result
}

func (l *Loop) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.stepTimeout > 0 {
		return context.WithTimeout(ctx, l.stepTimeout)
	}
	return context.WithCancel(ctx)
}

// assistantToolCallMessage records the model's request for exactly one tool.
func assistantToolCallMessage(content string, call models.ToolCall) openai.ChatCompletionMessageParamUnion {
	args := string(call.Function.Arguments)
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	msg := openai.ChatCompletionAssistantMessageParam{
		ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
			ID:   call.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Function.Name,
				Arguments: args,
			},
		}},
	}
	if content != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: param.NewOpt(content)}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}
}
