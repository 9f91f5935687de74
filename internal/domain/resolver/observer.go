package resolver

// Observer receives resolver events, typically for metrics.
type Observer interface {
	ConversationCreated(source TargetSource)
	TargetResolved(source TargetSource)
	MessageCaptured(role string)
	CaptureFailed(phase string)
	ReplyExtracted(strategy ExtractStrategy)
}

type NoopObserver struct{}

func (NoopObserver) ConversationCreated(TargetSource) {}
func (NoopObserver) TargetResolved(TargetSource)      {}
func (NoopObserver) MessageCaptured(string)           {}
func (NoopObserver) CaptureFailed(string)             {}
func (NoopObserver) ReplyExtracted(ExtractStrategy)   {}
