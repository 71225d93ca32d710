package markup

// listState is the state of the list scanner.
type listState int

const (
	stateNormal listState = iota
	stateInUL
	stateInOL
)

func (s listState) String() string {
	switch s {
	case stateInUL:
		return "IN_UL"
	case stateInOL:
		return "IN_OL"
	default:
		return "NORMAL"
	}
}

// listEvent is the input symbol derived from a block token.
type listEvent int

const (
	eventULItem listEvent = iota
	eventOLItem
	eventBlank
	eventOther
	eventEnd
)

// transition tells the builder which container to close and which to open
// before handling the token.
type transition struct {
	next  listState
	close string
	open  string
}

// listTransitions is the complete transition table. A blank line inside a
// list keeps the list open so loose lists stay one container; end of input
// always closes.
var listTransitions = map[listState]map[listEvent]transition{
	stateNormal: {
		eventULItem: {next: stateInUL, open: "ul"},
		eventOLItem: {next: stateInOL, open: "ol"},
		eventBlank:  {next: stateNormal},
		eventOther:  {next: stateNormal},
		eventEnd:    {next: stateNormal},
	},
	stateInUL: {
		eventULItem: {next: stateInUL},
		eventOLItem: {next: stateInOL, close: "ul", open: "ol"},
		eventBlank:  {next: stateInUL},
		eventOther:  {next: stateNormal, close: "ul"},
		eventEnd:    {next: stateNormal, close: "ul"},
	},
	stateInOL: {
		eventULItem: {next: stateInUL, close: "ol", open: "ul"},
		eventOLItem: {next: stateInOL},
		eventBlank:  {next: stateInOL},
		eventOther:  {next: stateNormal, close: "ol"},
		eventEnd:    {next: stateNormal, close: "ol"},
	},
}

func eventFor(t token) listEvent {
	switch t.kind {
	case tokULItem:
		return eventULItem
	case tokOLItem:
		return eventOLItem
	case tokBlank:
		return eventBlank
	default:
		return eventOther
	}
}

// listScanner drives listTransitions.
type listScanner struct {
	state listState
}

func (s *listScanner) step(ev listEvent) transition {
	tr := listTransitions[s.state][ev]
	s.state = tr.next
	return tr
}
