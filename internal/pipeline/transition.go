package pipeline

import "cligate/internal/classify"

// Phase is the closed PipelinePhase enum spec.md §4.H defines.
type Phase int

const (
	PhaseDormant Phase = iota
	PhaseThinking
	PhaseStreaming
	PhaseToolPending
)

func (p Phase) String() string {
	switch p {
	case PhaseDormant:
		return "DORMANT"
	case PhaseThinking:
		return "THINKING"
	case PhaseStreaming:
		return "STREAMING"
	case PhaseToolPending:
		return "TOOL_PENDING"
	default:
		return "UNKNOWN"
	}
}

// ActionName is one of the named actions spec.md §4.H fires. Kept as a
// string-backed enum (not function values) so the transition table below
// stays pure data, inspectable and testable on its own.
type ActionName string

const (
	ActionSendThinking    ActionName = "send_thinking"
	ActionSendKeyboard    ActionName = "send_keyboard"
	ActionSendAuthWarning ActionName = "send_auth_warning"
	ActionExtractAndSend  ActionName = "extract_and_send"
	ActionFinalize        ActionName = "finalize"
)

type transitionKey struct {
	phase Phase
	view  classify.ScreenEventKind
}

type transitionResult struct {
	next    Phase
	actions []ActionName
}

// table is the literal, bit-exact transition table of spec.md §4.H: every
// (current_phase, observed_view) pair an implementer must reproduce, laid
// out as data rather than an if-chain so it can be read against the spec's
// table row for row.
var table = map[transitionKey]transitionResult{
	{PhaseDormant, classify.EventThinking}:  {PhaseThinking, []ActionName{ActionSendThinking}},
	{PhaseDormant, classify.EventStreaming}: {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseDormant, classify.EventToolRequest}: {PhaseToolPending, []ActionName{ActionSendKeyboard}},
	{PhaseDormant, classify.EventAuthRequired}: {PhaseDormant, []ActionName{ActionSendAuthWarning}},
	{PhaseDormant, classify.EventError}:           {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseDormant, classify.EventTodoList}:        {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseDormant, classify.EventParallelAgents}:  {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseDormant, classify.EventBackgroundTask}:  {PhaseStreaming, []ActionName{ActionExtractAndSend}},

	{PhaseThinking, classify.EventStreaming}:      {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseThinking, classify.EventIdle}:            {PhaseDormant, []ActionName{ActionExtractAndSend, ActionFinalize}},
	{PhaseThinking, classify.EventToolRequest}:      {PhaseToolPending, []ActionName{ActionFinalize, ActionSendKeyboard}},
	{PhaseThinking, classify.EventAuthRequired}:     {PhaseDormant, []ActionName{ActionFinalize, ActionSendAuthWarning}},
	{PhaseThinking, classify.EventError}:            {PhaseDormant, []ActionName{ActionExtractAndSend, ActionFinalize}},
	{PhaseThinking, classify.EventTodoList}:         {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseThinking, classify.EventParallelAgents}:   {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseThinking, classify.EventBackgroundTask}:   {PhaseStreaming, []ActionName{ActionExtractAndSend}},

	{PhaseStreaming, classify.EventStreaming}:      {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseStreaming, classify.EventIdle}:            {PhaseDormant, []ActionName{ActionFinalize}},
	{PhaseStreaming, classify.EventToolRequest}:      {PhaseToolPending, []ActionName{ActionFinalize, ActionSendKeyboard}},
	{PhaseStreaming, classify.EventThinking}:         {PhaseThinking, []ActionName{ActionFinalize, ActionSendThinking}},
	{PhaseStreaming, classify.EventToolRunning}:      {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseStreaming, classify.EventToolResult}:       {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseStreaming, classify.EventError}:            {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseStreaming, classify.EventTodoList}:         {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseStreaming, classify.EventParallelAgents}:   {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseStreaming, classify.EventBackgroundTask}:   {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseStreaming, classify.EventAuthRequired}:     {PhaseDormant, []ActionName{ActionFinalize, ActionSendAuthWarning}},

	{PhaseToolPending, classify.EventToolRunning}:     {PhaseStreaming, nil},
	{PhaseToolPending, classify.EventStreaming}:        {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseToolPending, classify.EventThinking}:         {PhaseThinking, []ActionName{ActionSendThinking}},
	{PhaseToolPending, classify.EventIdle}:             {PhaseDormant, nil},
	{PhaseToolPending, classify.EventToolRequest}:       {PhaseToolPending, nil},
	{PhaseToolPending, classify.EventAuthRequired}:      {PhaseDormant, []ActionName{ActionSendAuthWarning}},
	{PhaseToolPending, classify.EventError}:             {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseToolPending, classify.EventTodoList}:          {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseToolPending, classify.EventParallelAgents}:    {PhaseStreaming, []ActionName{ActionExtractAndSend}},
	{PhaseToolPending, classify.EventBackgroundTask}:    {PhaseStreaming, []ActionName{ActionExtractAndSend}},
}

// lookup returns the table entry for (phase, view). Unknown pairs keep the
// phase and do nothing, per spec.md §4.H ("Unknown pairs keep the phase
// and do nothing").
func lookup(phase Phase, view classify.ScreenEventKind) (Phase, []ActionName) {
	if view == classify.EventUnknown || view == classify.EventStartup || view == classify.EventUserMessage {
		return phase, nil
	}
	if r, ok := table[transitionKey{phase, view}]; ok {
		return r.next, r.actions
	}
	return phase, nil
}
