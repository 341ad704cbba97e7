package domain

type CommandKind int

const (
	Login CommandKind = iota
	Publish
	Follow
	Timeline
	FollowCount
	Rendezvous
	Unregister
)

var commandNames = map[CommandKind]string{
	Login:       "LOGIN",
	Publish:     "PUBLISH",
	Follow:      "FOLLOW",
	Timeline:    "TIMELINE",
	FollowCount: "FOLLOW_COUNT",
	Rendezvous:  "RDV",
	Unregister:  "UNREGISTER",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// HasPayload reports whether the kind carries a name or a text.
func (k CommandKind) HasPayload() bool {
	return k == Login || k == Publish || k == Follow
}

type AnswerShape int

const (
	NoAnswer AnswerShape = iota
	SingleAnswer
	SetAnswer
)

// Answer is the result of a command.
// For a set, Count is the true number of matched items, which may exceed
// what the transport eventually sends.
type Answer struct {
	Shape    AnswerShape
	Messages []string
	Count    int
}

func Single(msg string) Answer {
	return Answer{Shape: SingleAnswer, Messages: []string{msg}, Count: 1}
}

func Set(msgs []string) Answer {
	return Answer{Shape: SetAnswer, Messages: msgs, Count: len(msgs)}
}

type Command struct {
	Kind           CommandKind
	Key            Key
	Payload        string
	AnswerExpected bool
	// Endpoint is only read by a login, to bind the new client to its connection.
	Endpoint Endpoint
	Answer   Answer
}

func NewCommand(kind CommandKind, key Key, payload string, answerExpected bool) *Command {
	return &Command{
		Kind:           kind,
		Key:            key,
		Payload:        payload,
		AnswerExpected: answerExpected,
	}
}
