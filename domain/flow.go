package domain

// FlowState tracks one login attempt through the orchestration state machine.
// Failed is terminal and reachable from every other state.
type FlowState string

const (
	FlowIdle              FlowState = "idle"
	FlowAwaitingProvider  FlowState = "awaiting_provider_redirect"
	FlowCallbackReceived  FlowState = "callback_received"
	FlowExchanging        FlowState = "exchanging"
	FlowIdentityResolving FlowState = "identity_resolving"
	FlowSessionUpdated    FlowState = "session_updated"
	FlowAdminValidating   FlowState = "admin_validating"
	FlowComplete          FlowState = "complete"
	FlowFailed            FlowState = "failed"
)
