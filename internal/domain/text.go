package domain

// Token is one lemmatized token from the linguistic pipeline.
type Token struct {
	Lemma   string
	POS     string
	Numeric bool
}

// Entity is one named entity span recognized in a text.
type Entity struct {
	Text  string
	Label string
}

// EntityPerson is the label the keyword engine keeps for the people pass.
const EntityPerson = "PERSON"

// Keyword is a scored phrase produced by keyphrase extraction.
type Keyword struct {
	Text  string
	Score float64
}

// KeyphraseRequest describes one keyphrase-extraction call. A non-empty
// Candidates list restricts scoring to those phrases.
type KeyphraseRequest struct {
	Text       string
	NgramMin   int
	NgramMax   int
	Candidates []string
	StopWords  string
	TopN       int
}
