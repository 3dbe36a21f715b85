package entities

// Card is a structured preview embedded in a post. The set of implementations is closed,
// anything upstream sends that is not recognized becomes an UnknownCard.
type Card interface {
	// CardType is the discriminator written into the exported form.
	CardType() string
	export() map[string]any
}

const (
	CardSummary    = "summary"
	CardPoll       = "poll"
	CardBroadcast  = "broadcast"
	CardAudiospace = "audiospace"
	CardUnknown    = "unknown"
)

type SummaryCard struct {
	Title       string
	Description string
	VanityURL   string
	URL         string
	Photo       *Photo
}

func (SummaryCard) CardType() string { return CardSummary }

type PollOption struct {
	Label      string
	VotesCount int64
}

type PollCard struct {
	Finished bool
	Options  []PollOption
}

func (PollCard) CardType() string { return CardPoll }

type BroadcastCard struct {
	Title string
	URL   string
	Photo *Photo
}

func (BroadcastCard) CardType() string { return CardBroadcast }

type AudiospaceCard struct {
	URL string
}

func (AudiospaceCard) CardType() string { return CardAudiospace }

// UnknownCard keeps the raw upstream tag of a card shape this package doesn't understand.
type UnknownCard struct {
	Name string
	URL  string
}

func (UnknownCard) CardType() string { return CardUnknown }
