package raffle

// RaffleTopic is the topic shared by every raffle event.
const RaffleTopic = "raffle"

// Event is a notification raised after an operation commits.
type Event interface {
	Topic() string
}

// EventHandler receives events synchronously, in commit order.
type EventHandler func(Event)

func (RaffleEntered) Topic() string    { return RaffleTopic }
func (WinnerSelected) Topic() string   { return RaffleTopic }
func (RefundIssued) Topic() string     { return RaffleTopic }
func (RoundOpened) Topic() string      { return RaffleTopic }
func (PrizeIssueFailed) Topic() string { return RaffleTopic }

// RaffleEntered reports an accepted entry.
type RaffleEntered struct {
	Participant Address
	RoundID     string
}

// WinnerSelected reports a closed round and its winner.
type WinnerSelected struct {
	Winner  Address
	Round   uint64
	RoundID string
	Entries int // Entries in the closed round
}

// RefundIssued reports a completed refund withdrawal.
type RefundIssued struct {
	Recipient Address
	Amount    uint64
}

// RoundOpened reports that a new round accepts entries.
type RoundOpened struct {
	RoundID string
	Round   uint64
}

// PrizeIssueFailed reports a prize issuer error. The round stays closed.
type PrizeIssueFailed struct {
	Winner Address
	Round  uint64
	Err    string
}
