package domain

// DefaultSummary is stored when the model reply carries no profile summary.
const DefaultSummary = "No summary generated."

// Outcome is the result of parsing a model reply: either *Parsed or *Degraded.
type Outcome interface {
	// Fields returns the values to persist. Degraded outcomes yield defaults.
	Fields() Parsed
	isOutcome()
}

// Parsed is a reply that decoded into the evaluation schema.
type Parsed struct {
	Score   MatchScore
	Matched Keywords
	Missing Keywords
	Summary string
}

func (p *Parsed) Fields() Parsed {
	out := *p
	if out.Matched == nil {
		out.Matched = Keywords{}
	}
	if out.Missing == nil {
		out.Missing = Keywords{}
	}
	return out
}

func (*Parsed) isOutcome() {}

// Degraded is a reply that could not be decoded. Response holds the cleaned raw text.
type Degraded struct {
	Response string
}

func (*Degraded) Fields() Parsed {
	return Parsed{
		Matched: Keywords{},
		Missing: Keywords{},
		Summary: DefaultSummary,
	}
}

func (*Degraded) isOutcome() {}
