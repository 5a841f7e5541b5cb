package domain

// Decision is the outcome of an ownership check.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Authorize allows the actor iff it owns the resource. It is pure and keeps no state.
func Authorize(actor *User, ownerID int64) Decision {
	if actor == nil {
		return Deny
	}
	return Decision(actor.ID == ownerID)
}
