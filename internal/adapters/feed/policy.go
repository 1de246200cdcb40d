package feed

import "github.com/dkeye/Rota/internal/domain"

type BackpressureAction int

const (
	// SkipEvent leaves the subscriber attached; it misses this announcement.
	SkipEvent BackpressureAction = iota
	// KickSubscriber closes the connection so the client reconnects and re-reads.
	KickSubscriber
)

type Policy interface {
	OnBackPressure(group domain.GroupID, s Subscriber) BackpressureAction
}

type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.GroupID, Subscriber) BackpressureAction {
	return KickSubscriber
}

type SkipPolicy struct{}

func (SkipPolicy) OnBackPressure(domain.GroupID, Subscriber) BackpressureAction {
	return SkipEvent
}

// PolicyByName maps the config value to a policy; unknown names kick.
func PolicyByName(name string) Policy {
	if name == "skip" {
		return SkipPolicy{}
	}
	return KickPolicy{}
}
